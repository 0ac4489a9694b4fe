package store

// Logical layout of the monitoring tree:
//
//	flowmeters/<fid>                      identity {serial_number}
//	flowmeters/<fid>/readings             current snapshot
//	flowmeters/<fid>/history/<rid>        append-only reading log
//	flowmeters/<fid>/warnings/<wid>       authoritative warning records
//	flowmeters/<fid>/users/<uid>          membership markers
//	users/<uid>/thresholds/<fid>/<metric> {low, high}
//	users/<uid>/devices/<did>             {token, notifications_enabled}
//	users/<uid>/warnings/<wid>            presence index

const FlowmetersPath = "flowmeters"

func FlowmeterPath(flowmeterID string) string {
	return Join(FlowmetersPath, flowmeterID)
}

func ReadingsPath(flowmeterID string) string {
	return Join(FlowmetersPath, flowmeterID, "readings")
}

func HistoryPath(flowmeterID string) string {
	return Join(FlowmetersPath, flowmeterID, "history")
}

func WarningsPath(flowmeterID string) string {
	return Join(FlowmetersPath, flowmeterID, "warnings")
}

func WarningPath(flowmeterID, warningID string) string {
	return Join(FlowmetersPath, flowmeterID, "warnings", warningID)
}

func FlowmeterUsersPath(flowmeterID string) string {
	return Join(FlowmetersPath, flowmeterID, "users")
}

func ThresholdPath(userID, flowmeterID, metric string) string {
	return Join("users", userID, "thresholds", flowmeterID, metric)
}

func DevicesPath(userID string) string {
	return Join("users", userID, "devices")
}

func UserWarningPath(userID, warningID string) string {
	return Join("users", userID, "warnings", warningID)
}
