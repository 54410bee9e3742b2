package auth

import (
	"fmt"
	"strings"
)

// ShowCredentialsGuide displays step-by-step instructions for supplying
// graph server credentials.
func ShowCredentialsGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("🔑 GRAPH SERVER CREDENTIALS GUIDE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("graphload authenticates against the graph server with a username and an")
	fmt.Println("API token. Credentials can come from three places, checked in this order:")
	fmt.Println()

	fmt.Println("1️⃣  STORED ACCOUNT (recommended)")
	fmt.Println("   Save an account once and reuse it across runs:")
	fmt.Println()
	fmt.Println("      graphload auth login")
	fmt.Println()
	fmt.Println("   You will be prompted for a username and token. The token is kept in")
	fmt.Println("   the system keyring when one is available, or in an encrypted file")
	fmt.Println("   under your config directory otherwise.")
	fmt.Println()

	fmt.Println("2️⃣  ENVIRONMENT VARIABLES")
	fmt.Println("   Useful for CI jobs and one-off runs:")
	fmt.Println()
	fmt.Println("      export GRAPHLOAD_USERNAME=loader")
	fmt.Println("      export GRAPHLOAD_TOKEN=<api token>")
	fmt.Println("      export GRAPHLOAD_HOST=graph.example.com   # optional")
	fmt.Println()

	fmt.Println("3️⃣  FLAGS OR CONFIG FILE")
	fmt.Println("   Pass --username and --token on the command line, or set them in the")
	fmt.Println("   graph section of your config file. Flags win over everything else.")
	fmt.Println()

	fmt.Println("🔍 WHERE TO GET A TOKEN:")
	fmt.Println("   Ask your graph server administrator, or issue one yourself from the")
	fmt.Println("   server's management console. The loader needs write access to the")
	fmt.Println("   target graph and nothing else.")
	fmt.Println()

	fmt.Println("⚠️  SECURITY:")
	fmt.Println("   • A token grants write access to your graphs. Never commit one to a")
	fmt.Println("     repository or paste it into a mapping file.")
	fmt.Println("   • Prefer 'graphload auth login' over --token: flags leak into shell")
	fmt.Println("     history and process listings.")
	fmt.Println("   • Revoke tokens you no longer use.")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickCredentialsGuide shows a condensed version for experienced users.
func ShowQuickCredentialsGuide() {
	fmt.Println("\n🔑 Quick: 'graphload auth login', or export GRAPHLOAD_USERNAME / GRAPHLOAD_TOKEN")
	fmt.Println("   Run 'graphload auth --help' for details")
}
