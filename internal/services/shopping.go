package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gorm.io/gorm"
)

// ShoppingItem 购物清单中的一行：同一食材的总量
type ShoppingItem struct {
	Name            string `json:"name"`
	TotalAmount     int    `json:"amount"`
	MeasurementUnit string `json:"measurement_unit"`
}

// CartLine 购物车菜谱展开后的单条食材行
type CartLine struct {
	IngredientID    uint
	Name            string
	MeasurementUnit string
	Amount          int
}

// ShoppingCSVHeader 下载文件的表头
var ShoppingCSVHeader = []string{"Ингредиент", "Количество", "Единица измерения"}

type ShoppingService struct {
	db *gorm.DB
}

func NewShoppingService(db *gorm.DB) *ShoppingService {
	return &ShoppingService{db: db}
}

// BuildShoppingList 汇总用户购物车中所有菜谱的食材用量
// 空购物车返回空切片
func (s *ShoppingService) BuildShoppingList(ctx context.Context, userID uint) ([]ShoppingItem, error) {
	var lines []CartLine
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients AS ri").
		Select("ri.ingredient_id, i.name, i.measurement_unit, ri.amount").
		Joins("JOIN ingredients i ON i.id = ri.ingredient_id").
		Joins("JOIN shopping_carts sc ON sc.recipe_id = ri.recipe_id").
		Where("sc.user_id = ?", userID).
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	return AggregateLines(lines), nil
}

// AggregateLines 按食材 ID 分组求和，结果按名称、单位排序
// 同名不同单位的食材不会合并
func AggregateLines(lines []CartLine) []ShoppingItem {
	idx := make(map[uint]int, len(lines))
	items := make([]ShoppingItem, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.IngredientID]; ok {
			items[i].TotalAmount += l.Amount
			continue
		}
		idx[l.IngredientID] = len(items)
		items = append(items, ShoppingItem{
			Name:            l.Name,
			TotalAmount:     l.Amount,
			MeasurementUnit: l.MeasurementUnit,
		})
	}

	sort.SliceStable(items, func(a, b int) bool {
		if items[a].Name != items[b].Name {
			return items[a].Name < items[b].Name
		}
		return items[a].MeasurementUnit < items[b].MeasurementUnit
	})
	return items
}

// WriteShoppingCSV 输出带表头的 CSV，每个食材一行
func WriteShoppingCSV(w io.Writer, items []ShoppingItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ShoppingCSVHeader); err != nil {
		return err
	}
	for _, it := range items {
		if err := cw.Write([]string{it.Name, strconv.Itoa(it.TotalAmount), it.MeasurementUnit}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
