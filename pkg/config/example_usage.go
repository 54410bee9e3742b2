package config

// Example usage of the configuration system:
//
// 1. Load configuration with all sources:
//
//     config, err := config.Load("", nil)
//     if err != nil {
//         log.Fatal(err)
//     }
//
// 2. Load with custom config file:
//
//     config, err := config.Load("/path/to/config.yaml", nil)
//     if err != nil {
//         log.Fatal(err)
//     }
//
// 3. Load with command line flags:
//
//     flags := map[string]interface{}{
//         "mapping": "./airports.yaml",
//         "graph": "airroutes",
//         "host": "graph.example.com",
//         "concurrency": 8,
//         "log-level": "debug",
//     }
//     config, err := config.Load("", flags)
//     if err != nil {
//         log.Fatal(err)
//     }
//
// 4. Programmatic configuration:
//
//     config := config.DefaultConfig()
//     config.Load.Mapping = "./airports.yaml"
//     config.Graph.Name = "airroutes"
//     config.Load.Concurrency = 8
//
//     if err := config.Validate(); err != nil {
//         log.Fatal(err)
//     }
//
// 5. Save configuration to file:
//
//     if err := config.Save(".graphload.yaml"); err != nil {
//         log.Fatal(err)
//     }
//
// 6. Environment variables:
//
//     export GRAPHLOAD_GRAPH="airroutes"
//     export GRAPHLOAD_HOST="graph.example.com"
//     export GRAPHLOAD_PORT="8182"
//     export GRAPHLOAD_TOKEN="your-api-token"
//     export GRAPHLOAD_CONCURRENCY="8"
//     export GRAPHLOAD_BATCH_SIZE="250"
//     export GRAPHLOAD_LOG_LEVEL="debug"
//
// 7. Using configuration in your application:
//
//     // Create graph server client with config
//     client := client.NewClientWithConfig(&cfg.Graph, &cfg.Retry, logger.GetLogger())
//
//     // Set up rate limiter
//     limiter := ratelimit.NewLimiter(
//         cfg.RateLimit.RequestsPerMinute,
//         cfg.RateLimit.BurstSize,
//     )
//
//     // Run the loader
//     loader, err := load.New(cfg)
//     if err != nil {
//         log.Fatal(err)
//     }
//     summary, err := loader.Run(ctx)
