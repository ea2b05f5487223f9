package ports

import "context"

// Player lance un lecteur vidéo externe.
// Replace change la source d'une lecture déjà en cours.
type Player interface {
	Play(ctx context.Context, url, title string) error
	Replace(ctx context.Context, url, title string) error
	Stop() error
}
