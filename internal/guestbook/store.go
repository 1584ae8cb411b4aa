// Package guestbook expõe as rotas do livro de visitas: velas, mensagens e
// arquivos, todos persistidos num repositório do GitHub.
package guestbook

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Issue é a parte de uma issue que o livro usa.
type Issue struct {
	ID        int64
	Number    int
	Title     string
	Body      string
	URL       string
	CreatedAt time.Time
}

type NewIssue struct {
	Title  string
	Body   string
	Labels []string
}

// Store é o backend. A implementação real fica em internal/githubstore.
type Store interface {
	CreateIssue(ctx context.Context, in NewIssue) (Issue, error)
	CreateReaction(ctx context.Context, issue int, content string) error
	ReactionCount(ctx context.Context, issue int, content string) (int, error)
	// SearchIssues devolve as issues mais recentes primeiro.
	SearchIssues(ctx context.Context, query string, perPage int) ([]Issue, error)
	// ListFiles devolve os caminhos de todos os blobs da branch.
	ListFiles(ctx context.Context, branch string) ([]string, error)
	// PutFile cria o arquivo e devolve a URL de download.
	PutFile(ctx context.Context, path, message, branch string, content []byte) (string, error)
	RawURL(branch, path string) string
}

// ErrStoreUnavailable indica que o backend foi isolado (circuito aberto).
var ErrStoreUnavailable = errors.New("backing store unavailable")

// StoreError é uma resposta de erro do próprio backend, repassada ao cliente.
type StoreError struct {
	Status  int
	Message string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("backing store status %d: %s", e.Status, e.Message)
}

// MissingSHAError indica ref ou commit devolvido sem SHA. Object é "branch"
// ou "tree".
type MissingSHAError struct {
	Object string
}

func (e *MissingSHAError) Error() string {
	return "Cannot read " + e.Object + " SHA"
}
