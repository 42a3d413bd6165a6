package models

// KnownIdentity is a user that has interacted with the bot at least once.
type KnownIdentity struct {
	UserID      int64  `json:"user_id"`
	Handle      string `json:"handle,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Name returns the best human-readable name for the identity.
func (k KnownIdentity) Name() string {
	if k.DisplayName != "" {
		return k.DisplayName
	}
	if k.Handle != "" {
		return "@" + k.Handle
	}
	return "friend"
}

// Sender identifies who issued an inbound message or button press.
type Sender struct {
	UserID      int64
	Handle      string
	DisplayName string
}

// Identity converts the sender into a registry record.
func (s Sender) Identity() KnownIdentity {
	return KnownIdentity{UserID: s.UserID, Handle: s.Handle, DisplayName: s.DisplayName}
}
