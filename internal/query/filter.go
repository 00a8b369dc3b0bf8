// Package query собирает условия выборки постов и параметры пагинации
// в форму, не зависящую от конкретного хранилища.
package query

import (
	"strings"

	"github.com/UkralStul/blog-service/internal/domain"
)

// Field - поле поста, по которому можно фильтровать.
type Field string

const (
	FieldTitle    Field = "title"
	FieldContent  Field = "content"
	FieldTags     Field = "tags"
	FieldFeatured Field = "isFeatured"
	FieldStatus   Field = "status"
	FieldAuthor   Field = "authorId"
)

// Op - операция сравнения.
type Op int

const (
	// OpContainsFold - подстрока без учёта регистра.
	OpContainsFold Op = iota
	// OpHas - значение входит в множество тегов.
	OpHas
	// OpHasEvery - множество тегов содержит все значения.
	OpHasEvery
	// OpEquals - точное равенство.
	OpEquals
)

// Condition - одно элементарное условие.
type Condition struct {
	Field Field
	Op    Op
	Value interface{}
}

// Clause - дизъюнкция условий (OR).
type Clause []Condition

// Predicate - конъюнкция дизъюнкций (AND of OR). Пустой предикат пропускает всё.
type Predicate []Clause

// PostFilter - критерии из запроса. nil/пустое значение означает "не фильтровать".
type PostFilter struct {
	Search     string
	Tags       []string
	IsFeatured *bool
	Status     *domain.PostStatus
	AuthorID   string
}

// Build переводит критерии в предикат.
func Build(f PostFilter) Predicate {
	var pred Predicate

	if f.Search != "" {
		pred = append(pred, Clause{
			{Field: FieldTitle, Op: OpContainsFold, Value: f.Search},
			{Field: FieldContent, Op: OpContainsFold, Value: f.Search},
			{Field: FieldTags, Op: OpHas, Value: f.Search},
		})
	}

	if len(f.Tags) > 0 {
		pred = append(pred, Clause{{Field: FieldTags, Op: OpHasEvery, Value: f.Tags}})
	}

	if f.IsFeatured != nil {
		pred = append(pred, Clause{{Field: FieldFeatured, Op: OpEquals, Value: *f.IsFeatured}})
	}

	if f.Status != nil {
		pred = append(pred, Clause{{Field: FieldStatus, Op: OpEquals, Value: *f.Status}})
	}

	if f.AuthorID != "" {
		pred = append(pred, Clause{{Field: FieldAuthor, Op: OpEquals, Value: f.AuthorID}})
	}

	return pred
}

// ParseTags разбирает список тегов через запятую. Пустые элементы отбрасываются.
func ParseTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ParseBool понимает только "true" и "false"; всё остальное - отсутствие фильтра.
func ParseBool(raw string) *bool {
	switch raw {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}

// Match проверяет пост против предиката в памяти.
func (p Predicate) Match(post *domain.Post) bool {
	for _, clause := range p {
		if !clause.match(post) {
			return false
		}
	}
	return true
}

func (c Clause) match(post *domain.Post) bool {
	for _, cond := range c {
		if cond.match(post) {
			return true
		}
	}
	return false
}

func (c Condition) match(post *domain.Post) bool {
	switch c.Op {
	case OpContainsFold:
		needle, _ := c.Value.(string)
		return strings.Contains(strings.ToLower(textField(post, c.Field)), strings.ToLower(needle))
	case OpHas:
		tag, _ := c.Value.(string)
		return hasTag(post.Tags, tag)
	case OpHasEvery:
		tags, _ := c.Value.([]string)
		for _, t := range tags {
			if !hasTag(post.Tags, t) {
				return false
			}
		}
		return true
	case OpEquals:
		switch c.Field {
		case FieldFeatured:
			v, ok := c.Value.(bool)
			return ok && post.IsFeatured == v
		case FieldStatus:
			v, ok := c.Value.(domain.PostStatus)
			return ok && post.Status == v
		case FieldAuthor:
			v, ok := c.Value.(string)
			return ok && post.AuthorID == v
		}
	}
	return false
}

func textField(post *domain.Post, f Field) string {
	switch f {
	case FieldTitle:
		return post.Title
	case FieldContent:
		return post.Content
	}
	return ""
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
