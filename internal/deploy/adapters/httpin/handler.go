// Package httpin handles incoming deploy requests over HTTP.
package httpin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nathantilsley/shipdeck/internal/deploy/domain"
	"github.com/nathantilsley/shipdeck/internal/deploy/ports"
)

const (
	maxConcurrentDeploys = 2
	maxBodyBytes         = 1 << 20

	// SignatureHeader carries the HMAC-SHA256 of the request body,
	// prefixed with "sha256=".
	SignatureHeader = "X-Hub-Signature-256"
)

// DeployRequest is the JSON payload accepted by POST /deploy. It mirrors
// the descriptor schema; exclude_ext accepts a single string or a list.
type DeployRequest struct {
	Username   string         `json:"username,omitempty"`
	RepoURL    string         `json:"repo_url"`
	Branch     string         `json:"branch"`
	CommitHash string         `json:"commit_hash"`
	LocalDir   string         `json:"local_dir"`
	ExcludeExt ExtList        `json:"exclude_ext"`
	Env        map[string]any `json:"env"`
	ReadOnly   bool           `json:"readonly"`
}

// Descriptor converts the payload to its domain form.
func (r DeployRequest) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		RepoURL:    r.RepoURL,
		Branch:     r.Branch,
		CommitHash: r.CommitHash,
		LocalDir:   r.LocalDir,
		ExcludeExt: r.ExcludeExt,
		Env:        r.Env,
		ReadOnly:   r.ReadOnly,
	}
}

// ExtList accepts either a single string extension or an array.
type ExtList []string

func (e *ExtList) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*e = nil
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*e = ExtList{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*e = ExtList(list)
	return nil
}

// Handler handles deploy requests: it verifies the body signature when a
// secret is configured, bounds concurrency, runs the deployment
// synchronously, and answers with the JSON run report. The caller keys
// success off the status code.
type Handler struct {
	useCase ports.DeployUseCase
	secret  []byte // empty disables signature verification
	logger  *slog.Logger
	sem     chan struct{}
}

// NewHandler creates a deploy handler.
func NewHandler(uc ports.DeployUseCase, secret string, logger *slog.Logger) *Handler {
	return &Handler{
		useCase: uc,
		secret:  []byte(secret),
		logger:  logger,
		sem:     make(chan struct{}, maxConcurrentDeploys),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read payload", http.StatusRequestEntityTooLarge)
		return
	}

	if len(h.secret) > 0 && !h.validSignature(body, r.Header.Get(SignatureHeader)) {
		h.logger.Error("invalid deploy signature", "remote", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var req DeployRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Error("failed to parse deploy payload", "error", err)
		http.Error(w, "failed to parse payload", http.StatusBadRequest)
		return
	}

	desc := req.Descriptor()
	h.logger.Info("deploy requested",
		"username", req.Username,
		"repoURL", desc.RepoURL,
		"ref", desc.Ref(),
		"localDir", desc.LocalDir,
	)

	h.sem <- struct{}{}        // acquire deploy slot
	defer func() { <-h.sem }() // release deploy slot

	rep, err := h.useCase.Execute(r.Context(), desc)
	status := http.StatusOK
	switch {
	case domain.IsConfigError(err):
		status = http.StatusBadRequest
	case err != nil:
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(rep); encErr != nil {
		h.logger.Error("failed to write deploy response", "error", encErr)
	}
}

func (h *Handler) validSignature(body []byte, header string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	want, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// Sign computes the signature value for a payload, for clients posting to
// the deploy endpoint.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
