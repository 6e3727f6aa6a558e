package sms

// inboundMessage входящий вебхук SMS-провайдера.
// Поддерживаются JSON- и form-encoded тела с одинаковыми полями.
type inboundMessage struct {
	FromNumber string `json:"from_number"`
	Content    string `json:"content"`
}

type sendMessageRequest struct {
	ToNumber string `json:"to_number"`
	Content  string `json:"content"`
	PhoneID  string `json:"phone_id"`
}

type sendMessageResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
