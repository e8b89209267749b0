package services

// ServiceContainer bundles every service facade for route registration.
type ServiceContainer struct {
	Payment  PaymentSvcFacade
	Transfer TransferSvcFacade
	AgentOps AgentOpsSvcFacade
	Payout   PayoutSvcFacade
	Refund   RefundSvcFacade
	Reversal ReversalSvcFacade
	History  HistorySvcFacade
	Policy   PolicySvcFacade
	Registry RegistrySvcFacade
}
