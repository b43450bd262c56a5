package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/foldertree"
	"github.com/vaultfs/vaultfs/internal/httpapi/auth"
	"github.com/vaultfs/vaultfs/internal/models"
)

type folderHandler struct {
	tree *foldertree.Tree
}

type createFolderRequest struct {
	Name     string  `json:"name" validate:"required"`
	ParentID *string `json:"parentId,omitempty"`
}

// Create handles POST /api/v1/folders.
func (h *folderHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	var req createFolderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	folder, err := h.tree.Create(r.Context(), principal.UserID, req.Name, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// List handles GET /api/v1/folders?parentId=.
func (h *folderHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	var parentID *string
	if v := r.URL.Query().Get("parentId"); v != "" {
		parentID = &v
	}
	folders, err := h.tree.List(r.Context(), principal.UserID, parentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

type updateFolderRequest struct {
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parentId,omitempty"`
	Move     bool    `json:"move,omitempty"`
}

// Update handles PUT /api/v1/folders/{folderID}: renames when name is set,
// moves when move is true (parentId nil means move to root).
func (h *folderHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	folderID := chi.URLParam(r, "folderID")

	var req updateFolderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	var folder *models.Folder
	var err error
	if req.Name != nil {
		folder, err = h.tree.Rename(r.Context(), principal.UserID, folderID, *req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Move {
		folder, err = h.tree.Move(r.Context(), principal.UserID, folderID, req.ParentID)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	if folder == nil {
		writeError(w, cerrors.New(cerrors.CodeValidation, "request must set name or move"))
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// Delete handles DELETE /api/v1/folders/{folderID}.
func (h *folderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	folderID := chi.URLParam(r, "folderID")
	if err := h.tree.Delete(r.Context(), principal.UserID, folderID); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

// Contents handles GET /api/v1/folders/{folderID}/contents.
func (h *folderHandler) Contents(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")
	totalSize, fileCount, err := h.tree.Contents(r.Context(), folderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalSize": totalSize,
		"fileCount": fileCount,
	})
}
