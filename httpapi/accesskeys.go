package httpapi

import (
	"net/http"
	"time"

	"github.com/yplabs-ltd/codepush-server/access"
	"github.com/yplabs-ltd/codepush-server/idutil"
	"github.com/yplabs-ltd/codepush-server/model"
	"github.com/yplabs-ltd/codepush-server/store"
)

const defaultAccessKeyTTL = 60 * 24 * time.Hour

func (s *Server) handleListAccessKeys(w http.ResponseWriter, r *http.Request) {
	accountID := accountIDFromContext(r)
	var keys []model.AccessKey
	err := s.db.Exec(func(q store.Querier) error {
		var err error
		keys, err = store.ListAccessKeysByAccount(r.Context(), q, accountID)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.AccessKey{"accessKeys": access.MaskKeys(keys)})
}

func (s *Server) handleCreateAccessKey(w http.ResponseWriter, r *http.Request) {
	accountID := accountIDFromContext(r)
	var body struct {
		FriendlyName string `json:"friendlyName"`
		TTLSeconds   int64  `json:"ttlSeconds"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.FriendlyName == "" {
		writeError(w, badRequest("friendlyName is required"))
		return
	}

	ttl := defaultAccessKeyTTL
	if body.TTLSeconds > 0 {
		ttl = time.Duration(body.TTLSeconds) * time.Second
	}

	key, err := idutil.GenerateAccessKey()
	if err != nil {
		writeError(w, err)
		return
	}

	k := model.AccessKey{
		ID:           idutil.NewID(),
		AccountID:    accountID,
		Name:         key,
		FriendlyName: body.FriendlyName,
		CreatedBy:    accountID,
		CreatedTime:  time.Now(),
		Expires:      time.Now().Add(ttl),
	}
	err = s.db.WithTransaction(r.Context(), func(q store.Querier) error {
		return store.InsertAccessKey(r.Context(), q, &k)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	// the raw key is only ever shown once, at creation time
	writeJSON(w, http.StatusCreated, map[string]model.AccessKey{"accessKey": k})
}

func (s *Server) handlePatchAccessKey(w http.ResponseWriter, r *http.Request) {
	accountID := accountIDFromContext(r)
	var k *model.AccessKey
	err := s.db.Exec(func(q store.Querier) error {
		var err error
		k, err = store.GetAccessKeyByFriendlyName(r.Context(), q, accountID, routeVar(r, "name"))
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		FriendlyName string `json:"friendlyName"`
		TTLSeconds   int64  `json:"ttlSeconds"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.FriendlyName != "" {
		k.FriendlyName = body.FriendlyName
	}
	if body.TTLSeconds > 0 {
		k.Expires = time.Now().Add(time.Duration(body.TTLSeconds) * time.Second)
	}

	err = s.db.WithTransaction(r.Context(), func(q store.Querier) error {
		return store.UpdateAccessKey(r.Context(), q, k)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.AccessKey{"accessKey": k.Masked()})
}

func (s *Server) handleDeleteAccessKey(w http.ResponseWriter, r *http.Request) {
	accountID := accountIDFromContext(r)
	var k *model.AccessKey
	err := s.db.Exec(func(q store.Querier) error {
		var err error
		k, err = store.GetAccessKeyByFriendlyName(r.Context(), q, accountID, routeVar(r, "name"))
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	err = s.db.WithTransaction(r.Context(), func(q store.Querier) error {
		return store.RemoveAccessKey(r.Context(), q, k.ID)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
