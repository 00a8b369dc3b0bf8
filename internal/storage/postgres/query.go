package postgres

import (
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/UkralStul/blog-service/internal/query"
)

var columns = map[query.Field]string{
	query.FieldTitle:    "title",
	query.FieldContent:  "content",
	query.FieldTags:     "tags",
	query.FieldFeatured: "is_featured",
	query.FieldStatus:   "status",
	query.FieldAuthor:   "author_id",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// applyPredicate добавляет к запросу по одному WHERE на каждую дизъюнкцию.
func applyPredicate(db *gorm.DB, pred query.Predicate) *gorm.DB {
	for _, c := range pred {
		sql, args := clauseSQL(c)
		if sql == "" {
			continue
		}
		db = db.Where(sql, args...)
	}
	return db
}

// applyPage добавляет сортировку, смещение и лимит.
func applyPage(db *gorm.DB, page query.Page) *gorm.DB {
	db = db.Order(clause.OrderByColumn{
		Column: clause.Column{Name: page.SortBy.Column()},
		Desc:   page.Desc,
	})
	if page.Skip > 0 {
		db = db.Offset(page.Skip)
	}
	if page.Limit > 0 {
		db = db.Limit(page.Limit)
	}
	return db
}

func clauseSQL(c query.Clause) (string, []interface{}) {
	var (
		parts []string
		args  []interface{}
	)
	for _, cond := range c {
		sql, arg, ok := conditionSQL(cond)
		if !ok {
			continue
		}
		parts = append(parts, sql)
		args = append(args, arg)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func conditionSQL(cond query.Condition) (string, interface{}, bool) {
	col, ok := columns[cond.Field]
	if !ok {
		return "", nil, false
	}

	switch cond.Op {
	case query.OpContainsFold:
		s, _ := cond.Value.(string)
		return col + ` ILIKE ?`, "%" + likeEscaper.Replace(s) + "%", true
	case query.OpHas:
		return `? = ANY(` + col + `)`, cond.Value, true
	case query.OpHasEvery:
		tags, _ := cond.Value.([]string)
		return col + ` @> ?`, pq.StringArray(tags), true
	case query.OpEquals:
		return col + ` = ?`, cond.Value, true
	}

	return "", nil, false
}
