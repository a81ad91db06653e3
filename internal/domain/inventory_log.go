package domain

import "time"

// InventoryLog — учётная запись о закупке партии товара.
// Прибыль не хранится, а выводится на момент чтения.
type InventoryLog struct {
	ID          string
	ProductCode string
	ProductName string
	ImportDate  time.Time
	// UnitCost — закупочная цена за единицу, SalePrice — продажная.
	UnitCost  int64
	SalePrice int64
	Quantity  int64
	// Сопутствующие расходы партии.
	CargoCost      int64
	InspectionCost int64
	OtherCost      int64
	CreatedAt      time.Time
}

// Profit выводит прибыль партии: маржа по количеству минус сопутствующие расходы.
func (l InventoryLog) Profit() int64 {
	return (l.SalePrice-l.UnitCost)*l.Quantity - l.CargoCost - l.InspectionCost - l.OtherCost
}
