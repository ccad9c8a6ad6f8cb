package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	Account any    `json:"account"`
}

type RegistrationRequestedResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	EmailSent  bool   `json:"email_sent"`
	CheckToken string `json:"check_token,omitempty"`
}

type PairingCodeResponse struct {
	Code string `json:"code"`
}

type PairingStatusResponse struct {
	Success  bool   `json:"success"`
	Complete bool   `json:"complete"`
	Message  string `json:"message,omitempty"`
}

type PendingPurchasesResponse struct {
	Success   bool `json:"success"`
	Purchases any  `json:"purchases"`
	Count     int  `json:"count"`
}

type ClaimResponse struct {
	Success      bool  `json:"success"`
	ClaimedCount int64 `json:"claimed_count"`
}

type VerifySignatureResponse struct {
	Valid bool `json:"valid"`
}
