package handlers

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/mw"
	"github.com/MrSnakeDoc/stash/internal/index"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

type authResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type meResponse struct {
	User *domain.User `json:"user"`
}

// Register creates an account and answers like a login.
func Register(d deps.Deps) http.HandlerFunc {
	cost := d.PasswordCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return func(w http.ResponseWriter, r *http.Request) {
		creds, ok := readCredentials(w, r)
		if !ok {
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), cost)
		if err != nil {
			d.Logger.Error("failed to hash password", logger.Error(err))
			utils.WriteError(w, http.StatusInternalServerError, "Could not create account")
			return
		}

		acc, err := d.MemoryIndex.CreateAccount(creds.Email, hash)
		if errors.Is(err, index.ErrEmailTaken) {
			utils.WriteError(w, http.StatusConflict, "User already exists")
			return
		}
		if err != nil {
			d.Logger.Error("failed to create account", logger.Error(err))
			utils.WriteError(w, http.StatusInternalServerError, "Could not create account")
			return
		}

		d.Logger.Info("account registered", logger.Int64("user_id", acc.ID))
		issueSession(w, d, acc, http.StatusCreated)
	}
}

// Login exchanges credentials for a bearer token.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds domain.Credentials
		if err := decodeBody(w, r, &creds); err != nil {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if creds.Email == "" || creds.Password == "" {
			utils.WriteError(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		acc, found := d.MemoryIndex.AccountByEmail(creds.Email)
		if !found {
			// Same answer as a wrong password: do not reveal which emails exist.
			utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(creds.Password)); err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		issueSession(w, d, acc, http.StatusOK)
	}
}

// Me resolves the bearer token to its user.
func Me(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := mw.UserID(r.Context())
		acc, found := d.MemoryIndex.Account(id)
		if !found {
			utils.WriteError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		utils.WriteJSON(w, http.StatusOK, meResponse{User: acc.User()})
	}
}

// Logout terminates the calling session. Clients do not need it, a token
// they forget simply expires.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Sessions.Terminate(mw.Token(r.Context())); err != nil {
			d.Logger.Error("failed to terminate session", logger.Error(err))
			utils.WriteError(w, http.StatusInternalServerError, "Could not log out")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func readCredentials(w http.ResponseWriter, r *http.Request) (domain.Credentials, bool) {
	var creds domain.Credentials
	if err := decodeBody(w, r, &creds); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return creds, false
	}
	if err := domain.ValidateCredentials(creds); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return creds, false
	}
	return creds, true
}

func issueSession(w http.ResponseWriter, d deps.Deps, acc *index.Account, status int) {
	raw, _, err := d.Sessions.Create(acc.ID)
	if err != nil {
		d.Logger.Error("failed to create session",
			logger.Int64("user_id", acc.ID),
			logger.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Could not create session")
		return
	}
	utils.WriteJSON(w, status, authResponse{User: acc.User(), Token: raw})
}
