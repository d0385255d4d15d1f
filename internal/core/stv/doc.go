// Package stv counts ranked ballots with the single transferable vote.
//
// The count uses the Droop quota floor(n/(seats+1))+1 and Gregory fractional
// surplus transfers, computed with exact rational weights. One candidate is
// acted on per round:
//
//   - when no more candidates continue than seats remain, all of them are
//     elected and counting stops;
//   - otherwise the candidate with the highest tally is elected if it reaches
//     the quota, and every ballot currently counting for it moves on to its
//     next continuing preference at weight*surplus/tally;
//   - otherwise the candidate with the lowest tally is eliminated and its
//     ballots move on at full weight.
//
// Ties are broken by candidate name: among equal highest tallies the name that
// sorts first is elected, among equal lowest tallies the name that sorts last
// is eliminated.
package stv
