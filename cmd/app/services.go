package main

import (
	"context"

	"github.com/sushihentaime/showcase/internal/contentservice"
	"github.com/sushihentaime/showcase/internal/userservice"
)

type userService interface {
	LoginUser(ctx context.Context, username, password string) (*userservice.LoginResult, error)
	Authenticate(ctx context.Context, token string) (*userservice.User, error)
	ListUsers(ctx context.Context) ([]*userservice.User, error)
	CreateUser(ctx context.Context, username, password, email string, level userservice.Level) (*userservice.User, error)
	DeleteUser(ctx context.Context, id int) error
}

type entityService interface {
	Resource() contentservice.Resource
	Create(ctx context.Context, in contentservice.Input) (*contentservice.Entity, error)
	Update(ctx context.Context, id int, in contentservice.Input) (*contentservice.Entity, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context) ([]*contentservice.Entity, error)
	GetByID(ctx context.Context, id int) (*contentservice.Entity, error)
}
