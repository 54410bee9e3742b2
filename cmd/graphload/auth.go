package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"graphload/pkg/auth"
	"graphload/pkg/client"
	"graphload/pkg/config"
	"graphload/pkg/logger"
	"graphload/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage graph server credentials",
	Long: `Manage stored graph server credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (GRAPHLOAD_USERNAME / GRAPHLOAD_TOKEN, read-only)

Never share your tokens or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store graph server credentials securely",
	Long: `Store graph server credentials in the system keychain or an encrypted file.

You will be prompted for:
  - Username (if not provided)
  - API token (hidden as you type)
  - Server host (optional, press Enter to skip)

Tokens are issued by your graph server administrator or its management
console. The loader only needs write access to the target graph.`,
	Example: `  # Interactive login
  graphload auth login

  # Login with username
  graphload auth login loader`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// removeCmd represents the auth remove command
var removeCmd = &cobra.Command{
	Use:   "remove [username]",
	Short: "Remove stored credentials",
	Long: `Remove stored graph server credentials.

If no username is provided, you will be shown a list of stored accounts
to choose from. You can also remove all accounts at once.`,
	Example: `  # Interactive removal
  graphload auth remove

  # Remove a specific account
  graphload auth remove loader`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRemove,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored graph server accounts with masked tokens.`,
	Run:   runList,
}

// verifyCmd represents the auth verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [username]",
	Short: "Verify stored credentials against the graph server",
	Long: `Verify that stored credentials can reach the graph server by probing
its version endpoint. Uses the named account, or the default account when
no username is given. Host and port come from the configuration unless the
account pins a host.`,
	Example: `  # Verify the default account
  graphload auth verify

  # Verify a specific account
  graphload auth verify loader`,
	Args: cobra.MaximumNArgs(1),
	Run:  runVerify,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(removeCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(verifyCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	auth.ShowCredentialsGuide()

	if username == "" {
		fmt.Print("Username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read username", err.Error())
			os.Exit(1)
		}
		username = strings.TrimSpace(input)
	}

	if username == "" {
		ui.PrintError("Username is required")
		os.Exit(1)
	}

	// Check if account already exists
	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Printf("\n⚠️  Account '%s' already exists. Update credentials? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Println("\n🔐 Enter your token (it will be hidden as you type):")
	fmt.Println()

	var token string
	for {
		fmt.Print("API token: ")
		token, err = readPassword()
		if err != nil {
			ui.PrintError("Failed to read token", err.Error())
			os.Exit(1)
		}

		if token == "" {
			fmt.Println("\n❌ The token cannot be empty.")
			fmt.Print("\nTry again? (Y/n): ")
			retry, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retry)) == "n" {
				os.Exit(1)
			}
			continue
		}
		if len(token) < 8 {
			fmt.Println("\n⚠️  That token looks unusually short. Most API tokens are longer.")
			fmt.Print("Use it anyway? (y/N): ")
			keep, _ := reader.ReadString('\n')
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(keep)), "y") {
				continue
			}
		}
		break
	}

	fmt.Print("\n🌐 Server host (press Enter to use the configured host): ")
	host, _ := reader.ReadString('\n')
	host = strings.TrimSpace(host)

	account := &auth.Account{
		Username:     username,
		Token:        token,
		Host:         host,
		LastModified: time.Now(),
	}

	sanitized := auth.SanitizeAccount(account)
	fmt.Println("\n📋 Summary:")
	fmt.Printf("   Username: %s\n", sanitized.Username)
	fmt.Printf("   Token: %s\n", sanitized.Token)
	if sanitized.Host != "" {
		fmt.Printf("   Host: %s\n", sanitized.Host)
	}

	fmt.Println("\n💾 Storing credentials securely...")
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	accounts, _ := manager.List()
	if len(accounts) == 1 {
		fmt.Printf("✅ Set '%s' as default account\n", username)
	}

	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", username))

	fmt.Println("\n🔒 Your credentials are encrypted and stored in:")
	if auth.IsKeyringAvailable() {
		fmt.Println("   • System keychain (primary)")
	}
	fmt.Println("   • Encrypted file (backup)")

	fmt.Println("\n📖 Quick Start:")
	fmt.Println("   Load a mapping into the graph server:")
	fmt.Println("   $ graphload load --mapping mapping.yaml")
	fmt.Println("\n   Use this specific account:")
	fmt.Printf("   $ graphload load --mapping mapping.yaml --account %s\n", username)
	fmt.Println("\n   Check the credentials work:")
	fmt.Printf("   $ graphload auth verify %s\n", username)
}

func runRemove(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if len(args) == 0 {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintError("No stored accounts found")
			return
		}

		if len(accounts) == 1 {
			account := accounts[0]
			reader := bufio.NewReader(os.Stdin)
			fmt.Printf("Remove account '%s'? (y/N): ", account.Username)
			input, _ := reader.ReadString('\n')
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
				return
			}

			if err := manager.Delete(account.Username); err != nil {
				ui.PrintError("Failed to remove account", err.Error())
				os.Exit(1)
			}
			ui.PrintSuccess("Account removed: " + account.Username)
			return
		}

		fmt.Println("Select account to remove:")
		for i, account := range accounts {
			fmt.Printf("  %d. %s\n", i+1, account.Username)
		}
		fmt.Printf("  %d. Remove all accounts\n", len(accounts)+1)
		fmt.Printf("  0. Cancel\n\n")

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Choice: ")
		input, _ := reader.ReadString('\n')

		var choice int
		fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

		switch {
		case choice == 0:
			return
		case choice == len(accounts)+1:
			fmt.Print("Remove ALL accounts? This cannot be undone! (yes/N): ")
			confirm, _ := reader.ReadString('\n')
			if strings.TrimSpace(confirm) != "yes" {
				return
			}

			if err := manager.DeleteAll(); err != nil {
				ui.PrintError("Failed to remove all accounts", err.Error())
				os.Exit(1)
			}
			ui.PrintSuccess("All accounts removed")
		case choice > 0 && choice <= len(accounts):
			account := accounts[choice-1]
			if err := manager.Delete(account.Username); err != nil {
				ui.PrintError("Failed to remove account", err.Error())
				os.Exit(1)
			}
			ui.PrintSuccess("Account removed: " + account.Username)
		default:
			ui.PrintError("Invalid choice")
			os.Exit(1)
		}
		return
	}

	username := args[0]
	if err := manager.Delete(username); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + username)
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'graphload auth login' to add one")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Username: %s\n", i+1, sanitized.Username)
		fmt.Printf("   Token: %s\n", sanitized.Token)
		if sanitized.Host != "" {
			fmt.Printf("   Host: %s\n", sanitized.Host)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

func runVerify(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var account *auth.Account
	if len(args) > 0 {
		account, err = manager.Retrieve(args[0])
		if err != nil {
			ui.PrintError("Account not found", args[0])
			os.Exit(1)
		}
	} else {
		account, err = manager.RetrieveDefault()
		if err != nil {
			ui.PrintError("No stored credentials found", "Use 'graphload auth login' to add an account")
			os.Exit(1)
		}
	}

	// Host and port come from the configuration; the account may pin a host.
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		ui.PrintError("Failed to load environment", err.Error())
		os.Exit(1)
	}

	graphCfg := cfg.Graph
	graphCfg.Username = account.Username
	graphCfg.Token = account.Token
	if account.Host != "" {
		graphCfg.Host = account.Host
	}

	ui.PrintInfo("Verifying account", account.Username)
	ui.PrintInfo("Server", fmt.Sprintf("%s:%d", graphCfg.Host, graphCfg.Port))

	cl := client.NewClientWithConfig(&graphCfg, &cfg.Retry, logger.GetLogger())
	defer cl.Close()

	info, err := cl.Version()
	if err != nil {
		ui.PrintError("Verification failed", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Credentials verified")
	fmt.Printf("   Server version: %s (api %s)\n", info.Versions.Version, info.Versions.API)
}

// readPassword reads a secret from stdin without echoing.
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
