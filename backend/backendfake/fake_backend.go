// Package backendfake is an in-process stand-in for the AMS REST API. It
// implements the user endpoints the dashboard consumes, issues HS256 JWTs the
// same way the real backend does and records how often each endpoint is hit.
package backendfake

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carlvinchi/ams/backend"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	maxPictureBytes = 10 << 20
)

// NewUser describes a user to seed.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Roles     []string
}

type userRecord struct {
	id             int64
	email          string
	passwordHash   []byte
	firstName      string
	lastName       string
	phone          string
	profilePicture string
	roles          []string
}

type claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

type Backend struct {
	mu       sync.RWMutex
	users    map[int64]*userRecord
	byEmail  map[string]int64
	nextID   int64
	pictures map[int64][]byte

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
	nowFunc    func() time.Time

	loginCalls   atomic.Int64
	meCalls      atomic.Int64
	refreshCalls atomic.Int64
	updateCalls  atomic.Int64
	uploadCalls  atomic.Int64

	failRefresh  atomic.Bool
	failProfile  atomic.Bool
	refreshDelay atomic.Int64

	mux *http.ServeMux
}

type Option func(*Backend)

func WithSecret(secret string) Option {
	return func(b *Backend) {
		b.secret = []byte(secret)
	}
}

func WithTokenTTL(access, refresh time.Duration) Option {
	return func(b *Backend) {
		b.accessTTL = access
		b.refreshTTL = refresh
	}
}

// WithBcryptCost lowers the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(b *Backend) {
		b.bcryptCost = cost
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(b *Backend) {
		b.nowFunc = now
	}
}

func New(options ...Option) *Backend {
	b := &Backend{
		users:      make(map[int64]*userRecord),
		byEmail:    make(map[string]int64),
		pictures:   make(map[int64][]byte),
		secret:     []byte(uuid.NewString()),
		accessTTL:  20 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		bcryptCost: bcrypt.DefaultCost,
		nowFunc:    time.Now,
		mux:        http.NewServeMux(),
	}
	for _, opt := range options {
		opt(b)
	}

	b.mux.HandleFunc("POST "+backend.RouteLogin, b.handleLogin)
	b.mux.HandleFunc("GET "+backend.RouteMe, b.handleMe)
	b.mux.HandleFunc("POST "+backend.RouteRefresh, b.handleRefresh)
	b.mux.HandleFunc("POST "+backend.RouteUpdate, b.handleUpdate)
	b.mux.HandleFunc("POST "+backend.RouteUpdatePassword, b.handleUpdatePassword)
	b.mux.HandleFunc("POST "+backend.RouteUploadProfilePicture, b.handleUpload)
	b.mux.HandleFunc("GET /static/profile_pictures/{file}", b.handlePicture)
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

// AddUser seeds a user and returns its id.
func (b *Backend) AddUser(u NewUser) (int64, error) {
	if u.Email == "" || u.Password == "" {
		return 0, errors.New("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), b.bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, exists := b.byEmail[email]; exists {
		return 0, fmt.Errorf("user %s already exists", u.Email)
	}
	b.nextID++
	b.users[b.nextID] = &userRecord{
		id:           b.nextID,
		email:        email,
		passwordHash: hash,
		firstName:    u.FirstName,
		lastName:     u.LastName,
		phone:        u.Phone,
		roles:        append([]string(nil), u.Roles...),
	}
	b.byEmail[email] = b.nextID
	return b.nextID, nil
}

// User returns the current profile of id as the backend would serialise it.
func (b *Backend) User(id int64) (backend.User, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.users[id]
	if !ok {
		return backend.User{}, false
	}
	return u.toUser(), true
}

// Picture returns the last uploaded picture of id.
func (b *Backend) Picture(id int64) []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pictures[id]
}

func (b *Backend) LoginCalls() int64   { return b.loginCalls.Load() }
func (b *Backend) MeCalls() int64      { return b.meCalls.Load() }
func (b *Backend) RefreshCalls() int64 { return b.refreshCalls.Load() }
func (b *Backend) UpdateCalls() int64  { return b.updateCalls.Load() }
func (b *Backend) UploadCalls() int64  { return b.uploadCalls.Load() }

// FailRefresh makes /users/refresh answer 401 while set.
func (b *Backend) FailRefresh(fail bool) { b.failRefresh.Store(fail) }

// FailProfile makes /users/me answer 500 while set.
func (b *Backend) FailProfile(fail bool) { b.failProfile.Store(fail) }

// SetRefreshDelay holds every refresh response for d.
func (b *Backend) SetRefreshDelay(d time.Duration) { b.refreshDelay.Store(int64(d)) }

// IssueTokens mints a token pair for a seeded user without going through login.
func (b *Backend) IssueTokens(id int64) (access, refresh string, err error) {
	b.mu.RLock()
	u, ok := b.users[id]
	b.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("user %d not found", id)
	}
	if access, err = b.sign(u, tokenTypeAccess, b.accessTTL); err != nil {
		return "", "", err
	}
	if refresh, err = b.sign(u, tokenTypeRefresh, b.refreshTTL); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.loginCalls.Add(1)

	var req backend.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	b.mu.RLock()
	u, ok := b.users[b.byEmail[strings.ToLower(req.Email)]]
	b.mu.RUnlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "User Not Found")
		return
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid Password")
		return
	}

	access, refresh, err := b.IssueTokens(u.id)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, backend.TokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.meCalls.Add(1)

	u, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	if b.failProfile.Load() {
		writeDetail(w, http.StatusInternalServerError, "profile lookup failed")
		return
	}
	b.mu.RLock()
	user := u.toUser()
	b.mu.RUnlock()
	writeJSON(w, http.StatusOK, user)
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)

	if d := time.Duration(b.refreshDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}

	var req backend.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if req.RefreshToken == "" {
		req.RefreshToken = r.URL.Query().Get("refresh_token")
	}

	if b.failRefresh.Load() {
		writeDetail(w, http.StatusUnauthorized, "Invalid Refresh Token")
		return
	}
	u, err := b.parse(req.RefreshToken, tokenTypeRefresh)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid Refresh Token")
		return
	}
	access, err := b.sign(u, tokenTypeAccess, b.accessTTL)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, backend.TokenResponse{AccessToken: access})
}

func (b *Backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	b.updateCalls.Add(1)

	u, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	var req backend.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	b.mu.Lock()
	email := strings.ToLower(req.Email)
	if other, exists := b.byEmail[email]; exists && other != u.id {
		b.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Email already in use")
		return
	}
	delete(b.byEmail, u.email)
	u.email = email
	u.phone = req.Phone
	u.firstName = req.FirstName
	u.lastName = req.LastName
	b.byEmail[email] = u.id
	user := u.toUser()
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.MutationResponse{Status: "ok", Data: &user})
}

func (b *Backend) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	b.updateCalls.Add(1)

	u, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	var req backend.PasswordUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	b.mu.RLock()
	current := u.passwordHash
	b.mu.RUnlock()
	if bcrypt.CompareHashAndPassword(current, []byte(req.OldPassword)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid Old Password")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), b.bcryptCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	b.mu.Lock()
	u.passwordHash = hash
	user := u.toUser()
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.MutationResponse{Status: "ok", Data: &user})
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	b.uploadCalls.Add(1)

	u, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxPictureBytes)
	file, header, err := r.FormFile(backend.UploadFieldName)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "upload_file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	b.pictures[u.id] = data
	u.profilePicture = "/static/profile_pictures/" + uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	user := u.toUser()
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.MutationResponse{Status: "ok", Data: &user})
}

func (b *Backend) handlePicture(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, u := range b.users {
		if u.profilePicture == path {
			w.Header().Set("Content-Type", http.DetectContentType(b.pictures[id]))
			_, _ = w.Write(b.pictures[id])
			return
		}
	}
	http.NotFound(w, r)
}

func (b *Backend) authenticate(w http.ResponseWriter, r *http.Request) (*userRecord, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	u, err := b.parse(raw, tokenTypeAccess)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate user")
		return nil, false
	}
	return u, true
}

func (b *Backend) sign(u *userRecord, tokenType string, ttl time.Duration) (string, error) {
	b.mu.RLock()
	role := ""
	if len(u.roles) > 0 {
		role = u.roles[0]
	}
	c := claims{
		UserID: u.id,
		Role:   role,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.email,
			IssuedAt:  jwt.NewNumericDate(b.nowFunc()),
			ExpiresAt: jwt.NewNumericDate(b.nowFunc().Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	b.mu.RUnlock()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(b.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func (b *Backend) parse(raw, tokenType string) (*userRecord, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		return b.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(b.nowFunc),
	)
	if err != nil {
		return nil, err
	}
	if c.Type != tokenType {
		return nil, fmt.Errorf("token type %q, want %q", c.Type, tokenType)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.users[c.UserID]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

// toUser must be called with b.mu held.
func (u *userRecord) toUser() backend.User {
	user := backend.User{
		ID:        u.id,
		Email:     u.email,
		FirstName: u.firstName,
		LastName:  u.lastName,
		Phone:     u.phone,
		Roles:     make([]backend.RoleRecord, 0, len(u.roles)),
	}
	if u.profilePicture != "" {
		pic := u.profilePicture
		user.ProfilePicture = &pic
	}
	for i, role := range u.roles {
		user.Roles = append(user.Roles, backend.RoleRecord{ID: i + 1, RoleName: role})
	}
	return user
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
