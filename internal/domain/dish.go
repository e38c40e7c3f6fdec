package domain

import "strings"

// DishType 是菜品的粗分类，只有两种取值。
type DishType string

const (
	TypeSoup DishType = "汤类"
	TypeDish DishType = "菜类"
)

// MarkdownExt 是菜品文档唯一被认可的扩展名（区分大小写）。
const MarkdownExt = ".md"

// DishRecord 是 dishes.json 中的一条记录。
//
// 不变量：
// - Name 不带扩展名
// - Link 恒等于 "/" + Category + "/" + Name
// - Type 只由 Category 是否属于汤类目录决定
//
// 字段顺序即 JSON 输出顺序，前端依赖该顺序做展示，不要调整。
type DishRecord struct {
	Category string   `json:"category"`
	Name     string   `json:"name"`
	Link     string   `json:"link"`
	Type     DishType `json:"type"`
}

// NewDishRecord 由分类目录名与文件名构造一条记录。
func NewDishRecord(category, fileName string, soup bool) DishRecord {
	name := strings.TrimSuffix(fileName, MarkdownExt)
	t := TypeDish
	if soup {
		t = TypeSoup
	}
	return DishRecord{
		Category: category,
		Name:     name,
		Link:     DishLink(category, name),
		Type:     t,
	}
}

// DishLink 返回站内详情页路径（不带 .md）。
func DishLink(category, name string) string {
	return "/" + category + "/" + name
}
