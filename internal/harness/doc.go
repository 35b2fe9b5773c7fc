// Package harness runs query scenarios against a freshly loaded scene.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: skinned_meshes
//	description: "Meshes driven by a skin cluster"
//	scene: ../scenes/demo.cue      # or scene_inline: |  <CUE text>
//	backend: memdb                  # or sqlite
//	steps:
//	  - query:
//	      name: skinned
//	      from: { type: [skinCluster] }
//	      steps:
//	        - get: future
//	        - only: { types: [mesh] }
//	    expect:
//	      equals: [bodyShape]
//	  - mutate:
//	      set: { node: body, attr: ty, value: 50 }
//	  - query:
//	      name: raised
//	      from: { using: [body] }
//	      steps:
//	        - where: { attr: ty, op: ">", value: 10 }
//	    expect:
//	      count: 1
//
// # Expectations
//
//   - equals: the result, in order
//   - contains: values that must appear in the result
//   - count: the result length
//   - empty: the result has no elements
//   - groups: group key text -> members, for documents with group_by
//   - error: a substring of the expected execution error
//
// Expected values are compared by natural equality after nodes are rendered
// as their names, so `bodyShape` matches the node and `35` matches 35.0.
//
// # Isolation
//
// Every scenario gets a fresh backend. Mutations apply to that backend only,
// and later queries observe them because plans are never memoized.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/cameras.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
