package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// BootstrapSystem makes sure the admin user exists. It returns the generated
// admin password on first creation when none was configured, and an empty
// string otherwise.
func (s *Server) BootstrapSystem(ctx context.Context) (generatedPassword string, err error) {
	log.Info().Msg("🔧 Bootstrap: Checking system configuration...")

	result, err := s.auth.EnsureAdmin(ctx, s.config.GetAdminPassword())
	if err != nil {
		return "", fmt.Errorf("failed to bootstrap admin user: %w", err)
	}
	generatedPassword = result.GeneratedPassword

	switch {
	case result.PasswordReset:
		log.Warn().Str("admin", s.auth.AdminUsername()).Msg("🔑 Bootstrap: admin password reset to the configured value")
	case !result.Created:
		log.Info().Str("admin", s.auth.AdminUsername()).Msg("✅ Bootstrap: System already configured")
	case generatedPassword != "":
		log.Info().Msg("✅ Bootstrap complete: System initialized")
		log.Info().Msgf("👤 Admin Credentials:")
		log.Info().Msgf("   Username:    %s", s.auth.AdminUsername())
		log.Info().Msgf("   Password:    %s", generatedPassword)
		log.Info().Msg("   ⚠️  SAVE THIS PASSWORD - it will not be displayed again!")
	default:
		log.Info().Str("admin", s.auth.AdminUsername()).Msg("✅ Bootstrap complete: admin created with configured password")
	}

	log.Info().Str("registration", s.auth.RegistrationMode()).Msg("   Registration mode")
	return generatedPassword, nil
}
