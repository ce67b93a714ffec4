// Package download provides the pipeline that turns download instructions
// into a dataset on disk.
//
// # Manager
//
// The Manager runs every instruction in order:
//
//  1. Create the label's archive, train and validation directories
//  2. Resolve the root WNID into category ids (hyponyms when recursive)
//  3. For each id, at most Concurrency at a time:
//     fetch the archive, extract it into train, split train into validation
//
// Fetches run concurrently; extraction and splitting of one label take
// turns. An id already handled for the label earlier in the run is skipped.
//  4. Optionally downscale the label's images
//
// # Basic Usage
//
//	manager := download.NewManager(settings, logger, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	}, nil)
//
//	if err := manager.PrepareLayout(); err != nil {
//	    log.Fatal(err)
//	}
//	outcome := manager.Run(ctx, instructions)
//	if !outcome.Succeeded() {
//	    os.Exit(1)
//	}
//
// # Failure handling
//
// A failing category is counted in its instruction's outcome and never stops
// its siblings. An instruction whose ids cannot be resolved is marked failed
// and the next instruction starts. A non-zero tar exit is only a warning.
// There are no retries.
//
// # Fetcher
//
// Fetcher downloads one archive per category. Existing archives are never
// downloaded again, and an interrupted download leaves no file behind.
package download
