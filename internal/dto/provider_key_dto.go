package dto

type StoreProviderKeyRequest struct {
	Provider string `json:"provider" validate:"required,oneof=openai gemini"`
	APIKey   string `json:"api_key" validate:"required,min=8"`
}

type StoreProviderKeyResponse struct {
	Provider string `json:"provider"`
}
