package models

// Notification is the user-visible content of a delivery.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

// DeliveryRequest asks for one fan-out to every endpoint of a family,
// optionally excluding the sender's own device.
type DeliveryRequest struct {
	FamilyID     string       `json:"family_id"`
	SenderToken  string       `json:"sender_token,omitempty"`
	Notification Notification `json:"notification"`
}

// DeliveryResult aggregates per-channel outcomes of one fan-out.
type DeliveryResult struct {
	Sent        int `json:"sent"`
	Mobile      int `json:"mobile"`
	MobileTotal int `json:"mobileTotal"`
	Web         int `json:"web"`
	WebTotal    int `json:"webTotal"`
}
