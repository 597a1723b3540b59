package models

import "time"

type Usuario struct {
	ID            int64      `json:"id"`
	Nome          string     `json:"nome"`
	Email         string     `json:"email"`
	SenhaHash     string     `json:"-"`
	TipoDeAcesso  string     `json:"tipo_de_acesso"`
	NivelDeAcesso string     `json:"nivel_de_acesso"`
	Status        string     `json:"status"`
	CriadoEm      time.Time  `json:"criado_em"`
	AtualizadoEm  *time.Time `json:"atualizado_em,omitempty"`
}

const (
	RoleAdministrador  = "administrador"
	RoleCoordenador    = "coordenador"
	RoleAdministrativo = "administrativo"
	RoleGerente        = "gerente"
	RoleSupervisor     = "supervisor"
)

const (
	LevelI   = "I"
	LevelII  = "II"
	LevelIII = "III"
)

const (
	StatusAtivo   = "ativo"
	StatusInativo = "inativo"
)

var accessRoles = map[string]bool{
	RoleAdministrador:  true,
	RoleCoordenador:    true,
	RoleAdministrativo: true,
	RoleGerente:        true,
	RoleSupervisor:     true,
}

var accessLevels = map[string]bool{
	LevelI:   true,
	LevelII:  true,
	LevelIII: true,
}

func ValidRole(s string) bool  { return accessRoles[s] }
func ValidLevel(s string) bool { return accessLevels[s] }
