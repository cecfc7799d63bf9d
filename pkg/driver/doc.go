// Package driver runs gonum's optimize methods over an [nlp.Problem].
//
// The driver is the outer loop of a solve. It owns no placement state: it
// pushes candidate vectors into the problem, pulls objective and gradient
// values back out, and marks each accepted step with
// [nlp.Problem.NextIteration]. Termination is shared between gonum's own
// convergence checks and the problem's stop policy, which is consulted
// before every evaluation.
//
// Supported methods are L-BFGS, nonlinear conjugate gradient, plain
// gradient descent and the derivative-free Nelder-Mead simplex.
package driver
