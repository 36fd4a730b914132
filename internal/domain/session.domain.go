package domain

type WorkflowStep string

const (
	StepIdle         WorkflowStep = "IDLE"
	StepAwaitEmail   WorkflowStep = "AWAIT_EMAIL"
	StepAwaitOTP     WorkflowStep = "AWAIT_OTP"
	StepAwaitMessage WorkflowStep = "AWAIT_MESSAGE"
	StepAwaitDate    WorkflowStep = "AWAIT_DATE"
	StepAwaitSlot    WorkflowStep = "AWAIT_SLOT"
	StepAwaitDetails WorkflowStep = "AWAIT_DETAILS"
)

// WorkflowSession is the per-chat conversation state for the bot
// channel. It survives between updates in the session store and is
// dropped on completion or expiry.
type WorkflowSession struct {
	ChatID       int64        `json:"chat_id"`
	Step         WorkflowStep `json:"step"`
	Intent       OtpIntent    `json:"intent,omitempty"`
	Email        string       `json:"email,omitempty"`
	PatientID    string       `json:"patient_id,omitempty"`
	DoctorID     string       `json:"doctor_id,omitempty"`
	SelectedDate string       `json:"selected_date,omitempty"`
	SelectedSlot string       `json:"selected_slot,omitempty"`
}
