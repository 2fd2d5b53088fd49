package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/cuemby/holt/pkg/broker"
	"github.com/cuemby/holt/pkg/index"
	"github.com/cuemby/holt/pkg/types"
)

func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &types.ServerInfo{
		PublicAddress: s.cfg.PublicName,
		Version:       s.version,
	})
}

func (s *Server) currentUserHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	users, err := s.broker.Users()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) listNodesHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	nodes, err := s.broker.NodeList()
	if err != nil {
		writeError(w, err)
		return
	}
	outs := lo.Map(nodes, func(n *types.StorageNode, _ int) *types.StorageNodeOut { return n.Out() })
	writeJSON(w, http.StatusOK, outs)
}

func (s *Server) createNodeHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	var req types.StorageNodeCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	node, err := s.broker.NodeCreate(user, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node.Out())
}

func (s *Server) deleteNodeHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	if err := s.broker.NodeDelete(user, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listRootsHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	roots, err := s.broker.RootList(r.URL.Query().Get("node"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roots)
}

func (s *Server) createRootHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	var req types.WorkspaceRootCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	root, err := s.broker.RootCreate(r.Context(), user, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, root)
}

func (s *Server) deleteRootHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	if err := s.broker.RootDelete(user, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createRootIndexHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	record, err := s.indexer.RootIndexCreate(r.Context(), user, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) deleteRootIndexHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	if err := s.indexer.RootIndexDelete(r.Context(), user, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) importRootHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	creds, err := s.broker.RootImport(user, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func (s *Server) searchWorkspacesHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	q := r.URL.Query()
	public, _ := strconv.ParseBool(q.Get("public"))
	workspaces, err := s.broker.WorkspaceSearch(user, broker.WorkspaceSearchOptions{
		Name:    q.Get("name"),
		Like:    q.Get("like"),
		OwnerID: q.Get("owner_id"),
		Public:  public,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspaces)
}

func (s *Server) createWorkspaceHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	var req types.WorkspaceCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ws, err := s.broker.WorkspaceCreate(r.Context(), user, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) getWorkspaceHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	ws, err := s.broker.WorkspaceGet(user, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) deleteWorkspaceHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	if err := s.broker.WorkspaceDelete(user, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) crawlWorkspaceHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	round, err := s.indexer.CrawlCreate(user, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, round)
}

func (s *Server) bulkIndexHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	var req types.BulkIndexRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.indexer.BulkIndex(r.Context(), user, mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) createShareHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	var req types.ShareCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	share, err := s.broker.ShareCreate(user, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, share)
}

func (s *Server) listSharesHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	shares, err := s.broker.ShareList(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

func (s *Server) updateShareHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	var req types.ShareUpdate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	share, err := s.broker.ShareUpdate(user, mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, share)
}

func (s *Server) deleteShareHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	if err := s.broker.ShareDelete(user, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listTokensHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	tokens, err := s.broker.TokenList(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) createTokenHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	var req types.S3TokenCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	tokens, err := s.broker.TokenCreate(r.Context(), user, req.Workspaces)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokens)
}

func (s *Server) deleteTokenHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	if err := s.broker.TokenRevoke(user, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteTokensHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	n, err := s.broker.TokenRevokeAll(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) searchTokensHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	var req types.S3TokenSearchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.broker.TokenSearch(r.Context(), user, req.SearchTerms)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listAPIKeysHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	keys, err := s.broker.APIKeyList(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) createAPIKeyHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	key, err := s.broker.APIKeyCreate(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, key)
}

func (s *Server) deleteAPIKeysHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	n, err := s.broker.APIKeyDeleteAll(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request, user *types.User) {
	var req types.SearchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	raw, err := s.indexer.Search(r.Context(), user, req.Q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	var payload index.BucketEventNotification
	if err := decode(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := s.indexer.HandleEvents(r.Context(), &payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// eventsProbeHandler answers the HEAD probe MinIO sends when it registers
// a webhook target.
func (s *Server) eventsProbeHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
