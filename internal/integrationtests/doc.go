// Package integrationtests runs whole builds through the app against
// component libraries declared in the tests.
package integrationtests
