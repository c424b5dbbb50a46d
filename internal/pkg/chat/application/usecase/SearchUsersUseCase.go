package usecase

import (
	"context"
	"errors"
	"strings"

	directory "guru-chat/internal/repository/port"
)

// MaxSearchResults caps what a directory search hands back to a client.
const MaxSearchResults = 20

var ErrDirectoryUnavailable = errors.New("chat use case: participant directory unavailable")

type SearchUsersInput struct {
	Query    string
	ViewerID string
}

// SearchUsersUseCase finds people to start a conversation with. The viewer is left out.
type SearchUsersUseCase struct {
	Directory directory.UserDirectory
}

func NewSearchUsersUseCase(dir directory.UserDirectory) *SearchUsersUseCase {
	return &SearchUsersUseCase{Directory: dir}
}

func (uc *SearchUsersUseCase) Execute(ctx context.Context, in SearchUsersInput) ([]directory.User, error) {
	q := strings.TrimSpace(in.Query)
	if q == "" || uc.Directory == nil {
		return []directory.User{}, nil
	}
	users, err := uc.Directory.SearchUsers(ctx, q)
	if err != nil {
		return nil, errors.Join(ErrDirectoryUnavailable, err)
	}
	out := make([]directory.User, 0, len(users))
	for _, u := range users {
		if u.ID == in.ViewerID {
			continue
		}
		out = append(out, u)
		if len(out) == MaxSearchResults {
			break
		}
	}
	return out, nil
}
