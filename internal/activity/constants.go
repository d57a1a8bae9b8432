package activity

// Activity name constants for type-safe activity invocation
const (
	ActivityResolveHosts             = "ResolveHosts"
	ActivityFindModuleIDs            = "FindModuleIDs"
	ActivityDispatchScriptJob        = "DispatchScriptJob"
	ActivitySendDispatchNotification = "SendDispatchNotification"
)
