package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dongtanms/parking-kiosk/internal/adminauth"
)

var (
	hashCodeOut   string
	hashCodeForce bool
	hashCodeStdin bool
)

var hashCodeCmd = &cobra.Command{
	Use:   "hash-code",
	Short: "Store a new admin code as an argon2id hash",
	Long: `Prompt for a new admin code and write its argon2id hash to the admin code
file. Point admin_code_file (or PARKING_ADMIN_CODE_FILE) at the file to use it
instead of the plain admin_code.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := hashCodeOut
		if out == "" {
			out = cfg.AdminCodeFile
		}
		if out == "" {
			return errors.New("no output file: pass --out or set admin_code_file")
		}

		var code string
		var err error
		if hashCodeStdin {
			code, err = readLine(cmd)
		} else {
			code, err = promptCode()
		}
		if err != nil {
			return err
		}

		if err := adminauth.WriteCodeFile(out, code, hashCodeForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Admin code hash written to %s\n", out)
		return nil
	},
}

func init() {
	hashCodeCmd.Flags().StringVarP(&hashCodeOut, "out", "o", "", "output file (default: admin_code_file from config)")
	hashCodeCmd.Flags().BoolVarP(&hashCodeForce, "force", "f", false, "overwrite an existing file")
	hashCodeCmd.Flags().BoolVar(&hashCodeStdin, "stdin", false, "read the code from the first line of stdin")
	rootCmd.AddCommand(hashCodeCmd)
}

func promptCode() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal: use --stdin")
	}

	_, _ = fmt.Fprint(os.Stderr, "New admin code: ")
	first, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	_, _ = fmt.Fprint(os.Stderr, "Repeat admin code: ")
	second, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", errors.New("codes do not match")
	}
	return string(first), nil
}

func readLine(cmd *cobra.Command) (string, error) {
	var line string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &line); err != nil {
		return "", fmt.Errorf("read code: %w", err)
	}
	return strings.TrimSpace(line), nil
}
