// Package skinlab provides a Go client for the skinlab HTTP API.
//
// # Analysis
//
//	client, _ := skinlab.New("https://skinlab.example.com", skinlab.WithAPIKey(key))
//	res, err := client.GenerateAnalysis(ctx, questionnaireID, []string{"u1/front.jpg"})
//	if errors.Is(err, skinlab.ErrQuestionnaireNotFound) {
//	    // ask the user to fill in the questionnaire again
//	}
//	fmt.Println(res.Analysis.OverallScore, len(res.Routine.Products))
//
// # Product search
//
//	resp, _ := client.SearchProducts(ctx, "gentle cleanser for dry skin", skinlab.WithMatchCount(10))
//	for _, p := range resp.Products {
//	    fmt.Println(p.Brand, p.Title, p.Similarity)
//	}
package skinlab
