package domain

// Request is one inbound client event.
// The set of variants is closed: only types of this package implement it.
type Request interface {
	isRequest()
}

type RegisterRequest struct {
	ID       UserID `json:"id" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=1024"`
}

// LoginRequest optionally carries the id the client believes it owns,
// used only to address errors when the requesting session is gone.
type LoginRequest struct {
	ID       UserID `json:"id,omitempty"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SendMessageRequest struct {
	SenderID   UserID `json:"senderId" validate:"required"`
	ReceiverID UserID `json:"receiverId" validate:"required"`
	Content    string `json:"message"`
	MessageID  string `json:"messageId"`
}

type RetrieveMessagesRequest struct {
	Sender   UserID `json:"sender" validate:"required"`
	Receiver UserID `json:"receiver" validate:"required"`
}

// RetrieveUsersRequest asks for the directory on demand.
type RetrieveUsersRequest struct{}

func (RegisterRequest) isRequest()         {}
func (LoginRequest) isRequest()            {}
func (SendMessageRequest) isRequest()      {}
func (RetrieveMessagesRequest) isRequest() {}
func (RetrieveUsersRequest) isRequest()    {}

// Inbound is a decoded request together with the session it came from.
type Inbound struct {
	SessionID SessionID
	Request   Request
}
