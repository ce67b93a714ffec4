// Package dataset splits extracted images into training and validation sets.
//
// The split is incremental: it runs after every extracted archive against
// the label's whole train directory, so each pass moves a percentage of
// whatever the directory holds at that moment.
//
//	splitter := dataset.NewSplitter(logger)
//	result, err := splitter.Split("/data/train/dog", "/data/validation/dog", 10)
//	fmt.Println(result.TotalFiles, result.ValidationCount, len(result.Moved))
package dataset
