package shellm

// State is a step of the response pipeline.
//
//	Idle → Rendering → AwaitingModel → Validating → (Valid | RepairRoundPending) → Done | Failed
//
// RepairRoundPending re-enters AwaitingModel once per repair round.
type State int

const (
	StateIdle State = iota
	StateRendering
	StateAwaitingModel
	StateValidating
	StateValid
	StateRepairRoundPending
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRendering:
		return "rendering"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateValidating:
		return "validating"
	case StateValid:
		return "valid"
	case StateRepairRoundPending:
		return "repair_round_pending"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
