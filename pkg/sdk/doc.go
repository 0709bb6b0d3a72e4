// Package recommender embeds the assessment recommendation pipeline in a Go
// program: similarity search over a prebuilt index artifact, truncation to a
// working set and technical/behavioral category balancing.
//
//	client, err := recommender.New(ctx,
//	    recommender.WithEmbedder(myEmbedder),
//	    recommender.WithArtifact("s3://assessments/index"),
//	    recommender.WithS3("s3.amazonaws.com", key, secret, "us-east-1", true),
//	)
//	if err != nil { ... }
//	defer client.Close()
//
//	recs, err := client.Recommend(ctx, "Java developer who collaborates with business teams", 10)
//	switch {
//	case errors.Is(err, recommender.ErrNoResults):
//	case errors.Is(err, recommender.ErrIndexUnavailable):
//	}
//
// The index loads lazily on the first Recommend call unless WithEagerLoad is set.
package recommender
