// Package imagenet provides access to the ImageNet text API.
//
// # Resolving Categories
//
// Resolve expands a parent synset into the list of synsets to download:
//
//	client := imagenet.NewClient(http.NewClient(0), config.DefaultAPIBaseURL, logger)
//	ids, err := client.Resolve(ctx, "n02084071", true)
//	// [n02084071 n01322604 n02112497 ...]
//
// With recursive set to false, Resolve returns the parent alone without
// touching the network.
//
// # Metadata
//
//	words, err := client.Words(ctx, "n02084071") // [dog, domestic dog, Canis familiaris]
//	urls, err := client.URLs(ctx, "n02084071")   // image URLs
//
// # Errors
//
// Transport failures and non-200 responses return *NetworkError; a
// response body that does not parse returns *ParseError.
package imagenet
