package inventory

import "errors"

var (
	ErrCodeRequired      = errors.New("fabric code is required")
	ErrInvalidPosition   = errors.New("invalid position")
	ErrInstallerRequired = errors.New("installer is required")

	ErrFabricCodeRequired = errors.New("fabric code of the anomaly is required")
	ErrQuadrantRequired   = errors.New("quadrant is required")
	ErrConditionRequired  = errors.New("condition is required")
	ErrObserverRequired   = errors.New("observer is required")

	ErrFabricCodeTaken  = errors.New("fabric code already installed")
	ErrPositionConflict = errors.New("position already has a fabric in operation")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown fabric status")
)

var invalidInput = []error{
	ErrCodeRequired,
	ErrInvalidPosition,
	ErrInstallerRequired,
	ErrFabricCodeRequired,
	ErrQuadrantRequired,
	ErrConditionRequired,
	ErrObserverRequired,
}

// IsInvalidInput reports whether err was caused by a rejected request field.
func IsInvalidInput(err error) bool {
	for _, target := range invalidInput {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict reports whether err was caused by the one-active-fabric-per-position
// rule or by a reused fabric code.
func IsConflict(err error) bool {
	return errors.Is(err, ErrFabricCodeTaken) || errors.Is(err, ErrPositionConflict)
}
