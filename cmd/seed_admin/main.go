// seed_admin crea el primer usuario administrador, necesario porque el alta de usuarios
// por API exige un token admin.
//
// Uso: go run ./cmd/seed_admin <username> <password> [nombre]
// Usa la misma configuración que la API (DB_DRIVER, DATABASE_URL, SQLITE_PATH, ...).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jhoicas/wip-ledger/internal/application/auth"
	"github.com/jhoicas/wip-ledger/internal/application/dto"
	"github.com/jhoicas/wip-ledger/internal/domain"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/infrastructure/store"
	"github.com/jhoicas/wip-ledger/pkg/config"
	"github.com/jhoicas/wip-ledger/pkg/logger"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "uso: seed_admin <username> <password> [nombre]")
		os.Exit(2)
	}
	name := ""
	if len(os.Args) > 3 {
		name = os.Args[3]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DB, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir almacén: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	uc := auth.NewAuthUseCase(st.Users, nil)
	user, err := uc.RegisterUser(ctx, dto.RegisterRequest{
		Username: os.Args[1],
		Password: os.Args[2],
		Name:     name,
		Role:     entity.RoleAdmin,
	})
	if errors.Is(err, domain.ErrUsernameTaken) {
		fmt.Printf("El usuario %s ya existe, nada que hacer\n", os.Args[1])
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear administrador: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Administrador creado: %s (%s)\n", user.Username, user.ID)
}
