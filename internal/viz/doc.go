// Package viz renders solver runs for the terminal.
//
//   - [Status]: outcome label coloured by the current [Theme]
//   - [Summary]: boxed panel with iterations, error and solution
//   - [ConvergencePlot]: asciigraph chart of log10(step error)
//   - [Canvas] and [PathPlot]: Braille drawing of the iterate path
package viz
