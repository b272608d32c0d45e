// Package seed bootstraps user accounts: the initial admin and, optionally,
// a batch of accounts described in a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/camera-management/internal/model"
	"github.com/iliyamo/camera-management/internal/service"
)

// DefaultAdminUsername is the account created by CreateAdmin when no name
// is given.
const DefaultAdminUsername = "admin"

// ErrExists is returned by CreateAdmin when the username is taken.
var ErrExists = errors.New("user already exists")

// Account is one entry of a seed file.
type Account struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type file struct {
	Users []Account `yaml:"users"`
}

// LoadFile reads accounts from a YAML document of the form
//
//	users:
//	  - username: ops1
//	    password: secret
//	    role: Operator
func LoadFile(path string) ([]Account, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.Users, nil
}

// Seeder creates accounts through the regular signup flow so the same
// validation and hashing apply.
type Seeder struct {
	Auth *service.AuthService
	Log  logrus.FieldLogger
}

// CreateAdmin creates an Admin account.
func (s *Seeder) CreateAdmin(ctx context.Context, username, password string) (model.PublicUser, error) {
	if username == "" {
		username = DefaultAdminUsername
	}
	res, err := s.Auth.Signup(ctx, service.SignupInput{Username: username, Password: password, Role: string(model.RoleAdmin)})
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			return model.PublicUser{}, ErrExists
		}
		return model.PublicUser{}, err
	}
	return res.User, nil
}

// Apply creates every account, skipping usernames that already exist.  It
// stops at the first invalid entry or store error.
func (s *Seeder) Apply(ctx context.Context, accounts []Account) (created, skipped int, err error) {
	for i, a := range accounts {
		res, err := s.Auth.Signup(ctx, service.SignupInput{Username: a.Username, Password: a.Password, Role: a.Role})
		switch {
		case err == nil:
			created++
			s.Log.WithFields(logrus.Fields{"username": res.User.Username, "role": res.User.Role}).Info("seed: created")
		case errors.Is(err, service.ErrConflict):
			skipped++
			s.Log.WithField("username", a.Username).Info("seed: exists, skipped")
		default:
			return created, skipped, fmt.Errorf("entry %d (%q): %w", i+1, a.Username, err)
		}
	}
	return created, skipped, nil
}
