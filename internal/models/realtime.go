package models

// PushMessage is the envelope written to live notification sockets.
type PushMessage struct {
	Type         string        `json:"type"` // "notification", "system_info"
	Notification *Notification `json:"notification,omitempty"`
	Content      string        `json:"content,omitempty"`
}
