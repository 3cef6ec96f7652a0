package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/agora/internal/dataloader"
	"github.com/UkralStul/agora/internal/domain"
	"github.com/UkralStul/agora/internal/envelope"
	"github.com/UkralStul/agora/internal/json"
	"github.com/UkralStul/agora/internal/storage"
)

const (
	maxTxBytes       = 64 << 10
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "height": h.ledger.Height()})
}

// submit opens a signed envelope and commits the transaction inside it.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var env envelope.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTxBytes)).Decode(&env); err != nil {
		h.writeError(w, r, domain.Errorf(domain.KindInvalidArgument, "malformed envelope: %v", err))
		return
	}
	tx, err := h.opener.Open(r.Context(), env)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	receipt, err := h.ledger.Submit(r.Context(), tx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.ledger.Profile(identityParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) getUserPosts(w http.ResponseWriter, r *http.Request) {
	ids := h.ledger.PostsByAuthor(identityParam(r))
	posts := make([]domain.Post, 0, len(ids))
	for _, id := range ids {
		post, err := h.ledger.Post(id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		posts = append(posts, post)
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	post, err := h.ledger.Post(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type commentView struct {
	domain.Comment
	AuthorProfile *domain.UserProfile `json:"authorProfile,omitempty"`
}

// getComments lists a post's comments with their authors' profiles, loaded
// in one batch.
func (h *Handler) getComments(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	comments, err := h.ledger.Comments(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	authors := make([]domain.Identity, len(comments))
	for i, c := range comments {
		authors[i] = c.Author
	}
	profiles, err := dataloader.For(r.Context()).Profiles(r.Context(), authors)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]commentView, len(comments))
	for i, c := range comments {
		views[i] = commentView{Comment: c}
		if p, ok := profiles[c.Author]; ok {
			views[i].AuthorProfile = &p
		}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) getLike(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.ledger.Post(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": h.ledger.HasLiked(id, identityParam(r))})
}

func (h *Handler) getModerationVote(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	vote, err := h.ledger.ModerationVote(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

func (h *Handler) getProposal(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "proposalID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	proposal, err := h.ledger.Proposal(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

func (h *Handler) getVote(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "proposalID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.ledger.Proposal(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"voted": h.ledger.HasVoted(id, identityParam(r))})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(chi.URLParam(r, "role"))
	if !role.Valid() {
		h.writeError(w, r, domain.Errorf(domain.KindNotFound, "unknown role %q", role))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasRole": h.ledger.HasRole(role, identityParam(r))})
}

func (h *Handler) getParameters(w http.ResponseWriter, r *http.Request) {
	p := h.ledger.Parameters()
	writeJSON(w, http.StatusOK, map[string]uint64{
		string(domain.ParamFlagThreshold):    p.FlagThreshold,
		string(domain.ParamVoteDuration):     uint64(p.VoteDuration.Seconds()),
		string(domain.ParamQuorumPercentage): p.QuorumPercentage,
	})
}

// getJournal pages through committed entries: ?from=<seq>&limit=<n>.
func (h *Handler) getJournal(w http.ResponseWriter, r *http.Request) {
	args := storage.PaginationArgs{From: 1, Limit: defaultPageLimit}
	query := r.URL.Query()
	if v := query.Get("from"); v != "" {
		from, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			h.writeError(w, r, domain.Errorf(domain.KindInvalidArgument, "invalid from %q", v))
			return
		}
		args.From = from
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > maxPageLimit {
			h.writeError(w, r, domain.Errorf(domain.KindInvalidArgument, "invalid limit %q", v))
			return
		}
		args.Limit = limit
	}

	entries, err := h.ledger.Entries(r.Context(), args)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func identityParam(r *http.Request) domain.Identity {
	return domain.Identity(chi.URLParam(r, "identity"))
}

func uintParam(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, domain.Errorf(domain.KindInvalidArgument, "invalid %s %q", name, raw)
	}
	return v, nil
}
