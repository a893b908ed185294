package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// s8admin reúne as tarefas administrativas feitas fora da API:
// criação do primeiro administrador e atendimento a imobiliárias.
func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "s8admin",
		Short:        "Ferramentas administrativas do S8 Garante",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("como", os.Getenv("S8_ADMIN_EMAIL"), "e-mail do administrador que executa o comando")

	rootCmd.AddCommand(
		SetupAdminCmd(),
		ProvisionAgencyCmd(),
		ResetAgencyPasswordCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
