package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/blog-service/internal/auth"
	"github.com/UkralStul/blog-service/internal/service"
)

type moderateInput struct {
	Status string `json:"status"`
}

func (a *API) createComment(w http.ResponseWriter, r *http.Request) {
	var in service.CommentInput
	if err := decode(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}

	comment, err := a.svc.CreateComment(r.Context(), auth.FromContext(r.Context()), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (a *API) getComment(w http.ResponseWriter, r *http.Request) {
	comment, err := a.svc.GetComment(r.Context(), chi.URLParam(r, "commentId"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (a *API) commentsByAuthor(w http.ResponseWriter, r *http.Request) {
	comments, err := a.svc.CommentsByAuthor(r.Context(), chi.URLParam(r, "authorId"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (a *API) updateComment(w http.ResponseWriter, r *http.Request) {
	var in service.CommentUpdate
	if err := decode(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}

	comment, err := a.svc.UpdateComment(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "commentId"), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (a *API) deleteComment(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteComment(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "commentId")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Comment deleted successfully"})
}

func (a *API) moderateComment(w http.ResponseWriter, r *http.Request) {
	var in moderateInput
	if err := decode(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}

	comment, changed, err := a.svc.ModerateComment(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "commentId"), in.Status)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	msg := fmt.Sprintf("Comment status updated to %s", comment.Status)
	if !changed {
		msg = fmt.Sprintf("Comment status is already %s", comment.Status)
	}
	writeJSON(w, http.StatusOK, messageBody{Message: msg, Data: comment})
}
