package domain

type MailType string

const (
	MailCreateUser        MailType = "create_user"
	MailResetPassword     MailType = "reset_password"
	MailChangeEmail       MailType = "change_email"
	MailAssignmentCreated MailType = "assignment_created"
)

type MailMessage struct {
	Type MailType `json:"type"`
	To   string   `json:"to"`
	Data any      `json:"data"`
}

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type ChangeEmailMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type AssignmentCreatedMailData struct {
	FullName     string `json:"fullName"`
	EventName    string `json:"eventName"`
	PositionName string `json:"positionName"`
	Department   string `json:"department"`
	ShiftStart   string `json:"shiftStart"`
	ShiftEnd     string `json:"shiftEnd"`
	Notes        string `json:"notes"`
}
