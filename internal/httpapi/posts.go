package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/blog-service/internal/auth"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/query"
	"github.com/UkralStul/blog-service/internal/service"
)

// postView - пост со всегда присутствующим полем comments.
type postView struct {
	*domain.Post
	Comments []*domain.Comment `json:"comments"`
}

func (a *API) listPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := query.PostFilter{
		Search:     q.Get("search"),
		Tags:       query.ParseTags(q.Get("tags")),
		IsFeatured: query.ParseBool(q.Get("isFeatured")),
		AuthorID:   q.Get("authorId"),
	}
	if raw := q.Get("status"); raw != "" {
		status, ok := domain.ParsePostStatus(raw)
		if !ok {
			a.fail(w, r, domain.E(domain.ErrInvalid, "Invalid status"))
			return
		}
		filter.Status = &status
	}

	page := query.Paginate(query.Options{
		Page:      q.Get("page"),
		Limit:     q.Get("limit"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})

	result, err := a.svc.ListPosts(r.Context(), filter, page)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := a.svc.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	// у открытого поста дерево комментариев есть всегда, даже пустое
	view := postView{Post: post, Comments: post.Comments}
	if view.Comments == nil {
		view.Comments = []*domain.Comment{}
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) myPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.svc.MyPosts(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.Stats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) createPost(w http.ResponseWriter, r *http.Request) {
	var in service.PostInput
	if err := decode(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}

	post, err := a.svc.CreatePost(r.Context(), auth.FromContext(r.Context()), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (a *API) updatePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "postId")
	if strings.TrimSpace(id) == "" {
		a.fail(w, r, domain.E(domain.ErrInvalid, "Post ID is required"))
		return
	}

	var in service.PostUpdate
	if err := decode(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}

	post, err := a.svc.UpdatePost(r.Context(), auth.FromContext(r.Context()), id, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (a *API) deletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "postId")
	if strings.TrimSpace(id) == "" {
		a.fail(w, r, domain.E(domain.ErrInvalid, "Post ID is required"))
		return
	}

	if err := a.svc.DeletePost(r.Context(), auth.FromContext(r.Context()), id); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Post deleted successfully"})
}
