// Package model defines the core data structures used throughout
// the imagenet-downloader application.
//
// # Instruction
//
// Instruction names one unit of work: a label (the dataset class and its
// directory name), the WordNet synset to start from, and whether to expand
// that synset into all of its hyponyms:
//
//	ins := model.Instruction{Label: "dog", RootID: "n02084071", Recursive: true}
//
// Instructions are read from a JSON manifest with LoadManifest, or built from
// a comma-separated WNID list with ExpandInstructions.
//
// # Layout
//
// Layout computes the on-disk dataset structure for a label:
//
//	layout := model.Layout{BaseDir: "/data/imagenet"}
//	dirs := layout.For("dog")
//	fmt.Println(dirs.Archives)   // /data/imagenet/tar/dog
//	fmt.Println(dirs.Train)      // /data/imagenet/train/dog
//	fmt.Println(dirs.Validation) // /data/imagenet/validation/dog
//
// # Outcomes
//
// SplitResult, InstructionOutcome and RunOutcome carry the results of a run
// back to the caller for summaries and the run history.
package model
