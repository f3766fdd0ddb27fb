// Package authtest provides in-memory credential and account stores for
// tests of code that sits on top of the auth service.
package authtest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"masterannonce/internal/models"
	"masterannonce/internal/session"
)

type credential struct {
	data    session.Data
	expires time.Time
}

// Credentials is an in-memory auth.CredentialStore with TTL expiry.
type Credentials struct {
	mu    sync.Mutex
	items map[string]credential
	Now   func() time.Time
}

// NewCredentials returns an empty credential store.
func NewCredentials() *Credentials {
	return &Credentials{items: map[string]credential{}, Now: time.Now}
}

func (c *Credentials) Create(_ context.Context, data *session.Data, ttl time.Duration) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	id := hex.EncodeToString(b)

	c.mu.Lock()
	defer c.mu.Unlock()
	data.CreatedAt = c.Now()
	c.items[id] = credential{data: *data, expires: c.Now().Add(ttl)}
	return id, nil
}

func (c *Credentials) Get(_ context.Context, id string) (*session.Data, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cred, ok := c.items[id]
	if !ok || !c.Now().Before(cred.expires) {
		return nil, nil
	}
	data := cred.data
	return &data, nil
}

// Consume returns a live credential and removes it under the same lock.
func (c *Credentials) Consume(_ context.Context, id string) (*session.Data, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cred, ok := c.items[id]
	if !ok {
		return nil, nil
	}
	delete(c.items, id)
	if !c.Now().Before(cred.expires) {
		return nil, nil
	}
	data := cred.data
	return &data, nil
}

func (c *Credentials) Destroy(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	return nil
}

// Len reports the number of stored credentials, expired ones included.
func (c *Credentials) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Users is an in-memory account store.
type Users struct {
	mu     sync.Mutex
	byName map[string]*models.User
}

// NewUsers returns an empty account store.
func NewUsers() *Users {
	return &Users{byName: map[string]*models.User{}}
}

func (u *Users) FindByUsername(_ context.Context, username string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if found, ok := u.byName[username]; ok {
		cp := *found
		return &cp, nil
	}
	return nil, nil
}

// FindByID also lets Users serve as an engine.UserFinder.
func (u *Users) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, found := range u.byName {
		if found.ID == id {
			cp := *found
			return &cp, nil
		}
	}
	return nil, nil
}

func (u *Users) ExistsByUsername(_ context.Context, username string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.byName[username]
	return ok, nil
}

func (u *Users) ExistsByEmail(_ context.Context, email string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, found := range u.byName {
		if strings.EqualFold(found.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (u *Users) Create(_ context.Context, username, email, password string, role models.Role) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	u.mu.Lock()
	u.byName[username] = user
	u.mu.Unlock()
	cp := *user
	return &cp, nil
}

func (u *Users) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// Remove deletes an account by username.
func (u *Users) Remove(username string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.byName, username)
}
