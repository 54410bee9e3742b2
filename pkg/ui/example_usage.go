// Package ui provides terminal UI components for the graph loader
// This file demonstrates example usage of the UI components
package ui

/*
Example usage of the UI components:

// Terminal colors and output
ui.PrintLogo()                                   // Print ASCII logo
ui.PrintInfo("Graph", "social")                  // Cyan label, yellow value
ui.PrintSuccess("Load completed!")               // Green success message
ui.PrintError("Failed to load batch", err)       // Red error message
ui.PrintWarning("Rate limit approaching")        // Yellow warning message
ui.PrintHighlight("[REPLAYING FAILURES]")        // Magenta highlight message
ui.SetQuietMode(true)                            // Silence everything but errors

// Progress display (plain, single-line mode)
display := ui.NewProgressDisplay("social", false)
display.StartSource("vertex", "person-people.csv", 4096)
display.CompleteBatch("vertex", "person-people.csv", 500, 2048)
display.FailBatch("vertex", "person-people.csv", 3, err)
display.CompleteSource("vertex", "person-people.csv")
display.RateLimitWarning(time.Minute)
display.Complete()

// Notifications (cross-platform)
notifier := ui.NewNotifier()
notifier.SendNotification("Load progress", "Vertices finished, edges starting")
notifier.SendError("Load failed", "Checkpoint could not be read")
notifier.SendSuccess("Load complete", "170 elements loaded into social")

// Direct color usage
fmt.Printf("%s: %s\n", ui.Cyan("Graph"), ui.Yellow("social"))
fmt.Println(ui.Green("✓ Loaded"))
fmt.Println(ui.Red("✗ Failed"))
*/
