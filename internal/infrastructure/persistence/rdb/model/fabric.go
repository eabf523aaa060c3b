package model

import "time"

type Fabric struct {
	Code        string     `gorm:"column:codigo;type:text;primaryKey"`
	Filter      int        `gorm:"column:filtro;not null"`
	Board       int        `gorm:"column:placa;not null"`
	Side        string     `gorm:"column:lado;type:text;not null"`
	InstalledAt time.Time  `gorm:"column:instalado_em;not null;index"`
	Installer   string     `gorm:"column:instalador;type:text;not null"`
	Notes       *string    `gorm:"column:observacoes;type:text"`
	Status      string     `gorm:"column:status;type:text;not null;default:em_operacao"`
	RemovedAt   *time.Time `gorm:"column:removido_em"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
}

func (Fabric) TableName() string {
	return "tecidos"
}
