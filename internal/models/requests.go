package models

type LoginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

type LoginResponse struct {
	Token   string   `json:"token"`
	Usuario *Usuario `json:"usuario"`
}

type ChangePasswordRequest struct {
	SenhaAtual string `json:"senha_atual"`
	SenhaNova  string `json:"senha_nova"`
}

type CreateUserRequest struct {
	Nome          string `json:"nome"`
	Email         string `json:"email"`
	Senha         string `json:"senha"`
	TipoDeAcesso  string `json:"tipo_de_acesso"`
	NivelDeAcesso string `json:"nivel_de_acesso"`
}

type UpdateUserRequest struct {
	Nome          *string `json:"nome,omitempty"`
	Email         *string `json:"email,omitempty"`
	TipoDeAcesso  *string `json:"tipo_de_acesso,omitempty"`
	NivelDeAcesso *string `json:"nivel_de_acesso,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}
