package handler

import (
	"context"
	"net/http"
)

// collection serves CRUD for one kind of project-owned row under
// /api/projects/{id}/<name>. A nil update or remove leaves that route
// unregistered.
type collection[T, C, U any] struct {
	scope
	name   string
	list   func(ctx context.Context, projectID int64) ([]*T, error)
	get    func(ctx context.Context, projectID, id int64) (*T, error)
	create func(ctx context.Context, projectID int64, in C) (*T, error)
	update func(ctx context.Context, projectID, id int64, in U) error
	remove func(ctx context.Context, projectID, id int64) error
}

func (c collection[T, C, U]) register(mux *http.ServeMux) {
	base := "/api/projects/{id}/" + c.name
	mux.HandleFunc("GET "+base, c.List)
	mux.HandleFunc("GET "+base+"/{itemID}", c.Get)
	if c.create != nil {
		mux.HandleFunc("POST "+base, c.Create)
	}
	if c.update != nil {
		mux.HandleFunc("PUT "+base+"/{itemID}", c.Update)
	}
	if c.remove != nil {
		mux.HandleFunc("DELETE "+base+"/{itemID}", c.Delete)
	}
}

func (c collection[T, C, U]) List(w http.ResponseWriter, r *http.Request) {
	p, ok := c.project(w, r)
	if !ok {
		return
	}
	items, err := c.list(r.Context(), p.ID)
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	if items == nil {
		items = []*T{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (c collection[T, C, U]) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := c.project(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	item, err := c.get(r.Context(), p.ID, id)
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (c collection[T, C, U]) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := c.project(w, r)
	if !ok {
		return
	}
	var in C
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	item, err := c.create(r.Context(), p.ID, in)
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (c collection[T, C, U]) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := c.project(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	var in U
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	if err := c.update(r.Context(), p.ID, id, in); err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	item, err := c.get(r.Context(), p.ID, id)
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (c collection[T, C, U]) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := c.project(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	if err := c.remove(r.Context(), p.ID, id); err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
