package query

import (
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultPage - первая страница.
	DefaultPage = 1
	// DefaultLimit - размер страницы по умолчанию при нормализации.
	DefaultLimit = 2
	// DefaultSort - поле сортировки по умолчанию.
	DefaultSort = SortCreatedAt
)

// SortField - поле, по которому разрешено сортировать.
type SortField string

const (
	SortCreatedAt  SortField = "createdAt"
	SortUpdatedAt  SortField = "updatedAt"
	SortTitle      SortField = "title"
	SortViews      SortField = "views"
	SortStatus     SortField = "status"
	SortIsFeatured SortField = "isFeatured"
)

var sortColumns = map[SortField]string{
	SortCreatedAt:  "created_at",
	SortUpdatedAt:  "updated_at",
	SortTitle:      "title",
	SortViews:      "views",
	SortStatus:     "status",
	SortIsFeatured: "is_featured",
}

// Column возвращает имя колонки в базе.
func (s SortField) Column() string {
	if col, ok := sortColumns[s]; ok {
		return col
	}
	return sortColumns[DefaultSort]
}

// Options - сырые значения из строки запроса.
type Options struct {
	Page      string
	Limit     string
	SortBy    string
	SortOrder string
}

// Page - нормализованные параметры страницы.
type Page struct {
	Page      int       `json:"page"`
	Limit     int       `json:"limit"`
	Skip      int       `json:"skip"`
	SortBy    SortField `json:"sortBy"`
	Desc      bool      `json:"-"`
	SortOrder string    `json:"sortOrder"`
}

// Paginate приводит сырые параметры к безопасным значениям. Нечисловые или
// неположительные значения заменяются значениями по умолчанию, ошибок нет.
func Paginate(opts Options) Page {
	page := positive(opts.Page, DefaultPage)
	limit := positive(opts.Limit, DefaultLimit)

	sortBy := SortField(opts.SortBy)
	if _, ok := sortColumns[sortBy]; !ok {
		sortBy = DefaultSort
	}

	order := strings.ToLower(strings.TrimSpace(opts.SortOrder))
	if order != "asc" {
		order = "desc"
	}

	return Page{
		Page:      page,
		Limit:     limit,
		Skip:      skip(page, limit),
		SortBy:    sortBy,
		Desc:      order == "desc",
		SortOrder: order,
	}
}

// TotalPages считает число страниц. При нулевом лимите делит на DefaultLimit.
func (p Page) TotalPages(total int64) int64 {
	limit := int64(p.Limit)
	if limit <= 0 {
		limit = DefaultLimit
	}
	return (total + limit - 1) / limit
}

// skip считает смещение. При переполнении смещение упирается в math.MaxInt,
// такая страница заведомо пуста.
func skip(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func positive(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}
