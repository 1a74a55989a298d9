package models

// Step is a position in the report wizard
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepSourceCategories
	StepTemplateOutput
	StepSubmitted
)

// LastInputStep is the step that carries the Submit control
const LastInputStep = StepTemplateOutput

func (s Step) String() string {
	switch s {
	case StepBasicInfo:
		return "basic info"
	case StepSourceCategories:
		return "source & categories"
	case StepTemplateOutput:
		return "template & output"
	case StepSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}
