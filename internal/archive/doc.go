// Package archive extracts downloaded synset archives.
//
// Extraction is delegated to an external tar binary so that archive
// handling matches what users get from the command line:
//
//	extractor := archive.NewExtractor("tar", logger)
//	code, err := extractor.Extract(ctx, "/data/tar/dog/n02085620.tar", "/data/train/dog")
//	if err != nil {
//	    // tar could not be started
//	}
//	if code != 0 {
//	    // tar reported a problem; output was logged
//	}
package archive
