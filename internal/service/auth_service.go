package service

import (
	"english_bot_backend/internal/config"
	"english_bot_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
)

// AuthService 管理接口的登录。单管理员模型，凭据来自配置的 bcrypt 哈希
type AuthService struct {
	cfg *config.Config
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg}
}

// Login 校验管理员口令并签发 JWT
func (s *AuthService) Login(password string) (string, error) {
	if s.cfg.Admin.PasswordHash == "" {
		return "", util.ErrInvalidPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.Admin.PasswordHash), []byte(password)); err != nil {
		return "", util.ErrInvalidPassword
	}
	return util.GenerateJWT("admin", s.cfg.JWT.Secret, s.cfg.JWT.ExpireTime)
}
