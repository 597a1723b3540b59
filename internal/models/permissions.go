package models

// PermissaoUsuario is the materialized capability set for one user on one
// screen. Rows are recomputed wholesale when the owning user's role or level
// changes; they are never patched in place.
type PermissaoUsuario struct {
	UsuarioID      int64  `json:"usuario_id"`
	Tela           string `json:"tela"`
	PodeVisualizar bool   `json:"pode_visualizar"`
	PodeCriar      bool   `json:"pode_criar"`
	PodeEditar     bool   `json:"pode_editar"`
	PodeExcluir    bool   `json:"pode_excluir"`
}
