package engine

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// AssessBatteryRisk classifies how dangerous the current battery level is
// given the real path cost back to the recharger. Used by the service layer
// for run state reporting.
func AssessBatteryRisk(battery, costToRecharger int) string {
	switch {
	case battery <= 0:
		return "CRITICAL: Battery empty!"
	case costToRecharger >= UnreachableCost:
		return "WARNING: Recharger unreachable!"
	case battery <= costToRecharger:
		return "DANGER: Insufficient battery to reach the recharger!"
	case battery <= costToRecharger+5:
		return "CAUTION: Low battery, consider recharging"
	default:
		return "SAFE: Battery sufficient"
	}
}
