package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fulfillment-engine/pkg/jwt"
)

// newTokenCmd emite tokens para la API; la identidad vive fuera del motor y no hay login.
func newTokenCmd(e *env) *cobra.Command {
	var user, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emite un Bearer token firmado con JWT_SECRET (vence a los JWT_EXPIRATION_MINUTES)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch role {
			case jwt.RoleAdmin, jwt.RoleWarehouse, jwt.RoleSales:
			default:
				return fmt.Errorf("rol %q desconocido (admin, bodeguero, vendedor)", role)
			}
			token, err := jwt.Generate(e.cfg.JWT.Secret, user, role, e.cfg.JWT.Issuer, e.cfg.JWT.Expiration)
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "ID del usuario (actor en el audit trail)")
	cmd.Flags().StringVar(&role, "role", jwt.RoleSales, "Rol: admin, bodeguero o vendedor")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
