package model

import "time"

// Anomaly.FabricCode has no foreign key to tecidos: observations may name
// codes that were never installed.
type Anomaly struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	FabricCode string    `gorm:"column:tecido_codigo;type:text;not null;index"`
	ObservedAt time.Time `gorm:"column:data;not null;index"`
	Quadrant   string    `gorm:"column:quadrante;type:text;not null"`
	Condition  string    `gorm:"column:condicao;type:text;not null"`
	Observer   string    `gorm:"column:responsavel;type:text;not null"`
	Notes      *string   `gorm:"column:observacoes;type:text"`
	LoggedAt   time.Time `gorm:"column:timestamp;not null"`
}

func (Anomaly) TableName() string {
	return "anomalias"
}
