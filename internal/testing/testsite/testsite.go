// Package testsite provides a small static copy of the target website for
// tests that drive a snapshot page.
package testsite

import (
	"net/http"
	"net/url"

	"github.com/xkilldash9x/sitevoice/internal/browser/snapshot"
)

// BaseURL is the root of the fixture site.
const BaseURL = "https://ikf.test/"

const (
	HomeURL     = "https://ikf.test/"
	CareerURL   = "https://ikf.test/career"
	ContactURL  = "https://ikf.test/contact"
	ServicesURL = "https://ikf.test/services"
	ApplyURL    = "https://ikf.test/career/apply?role=ai"
)

const homeHTML = `<!DOCTYPE html>
<html><head><title>I Knowledge Factory</title><style>body{color:#000}</style></head>
<body>
<nav><a href="/about">About</a> <a class="apply-link" href="/career">Join us</a></nav>
<h1>Welcome to I Knowledge Factory</h1>
<h2>What we do</h2>
<h2>What we do</h2>
<div class="job-banner">We're hiring! See open roles on our career page today.</div>
<p>We build websites, mobile apps and digital marketing campaigns.</p>
<script>console.log("hidden")</script>
</body></html>`

const careerHTML = `<!DOCTYPE html>
<html><head><title>Careers | I Knowledge Factory</title></head>
<body>
<h1>Careers</h1>
<h2>Open Positions</h2>
<h2>   </h2>
<div class="job-listing">
  <h3>AI LLM Intern</h3>
  <p>Work on large language model products. Duration: 6 months. Remote.</p>
  <a class="apply-btn" href="/career/apply?role=ai">Apply Now</a>
</div>
<div class="job-listing">
  <h3>Frontend Developer</h3>
  <p>Build React interfaces for client websites.</p>
  <button class="apply-button">Apply</button>
</div>
<div class="career-item"><span>Short</span></div>
<div class="opening-note">We are always hiring creative designers for our studio team.</div>
<form id="apply-form">
  <input type="text" name="full_name" placeholder="Full name">
  <input name="email">
  <textarea name="cover" placeholder="Cover letter"></textarea>
  <select name="role"><option>AI</option></select>
</form>
</body></html>`

const applyHTML = `<!DOCTYPE html>
<html><head><title>Apply | I Knowledge Factory</title></head>
<body><h1>Apply: AI LLM Intern</h1>
<form><input type="email" name="email" placeholder="you@example.com"></form>
</body></html>`

const contactHTML = `<!DOCTYPE html>
<html><head><title>Contact | I Knowledge Factory</title></head>
<body><h1>Contact Us</h1>
<form class="contact"><input type="text" name="name"><textarea name="message"></textarea></form>
</body></html>`

const servicesHTML = `<!DOCTYPE html>
<html><head><title>Services | I Knowledge Factory</title></head>
<body><h1>Our Services</h1><h2>Web Development</h2><h2>Digital Marketing</h2></body></html>`

// Pages returns a fresh in-memory source for the fixture site. The site has
// no /portfolio, /blog or /team pages, so loading those fails.
func Pages() snapshot.Pages {
	return snapshot.Pages{
		HomeURL:                     homeHTML,
		"https://ikf.test/about":    `<html><head><title>About</title></head><body><h1>About Us</h1></body></html>`,
		CareerURL:                   careerHTML,
		ApplyURL:                    applyHTML,
		ContactURL:                  contactHTML,
		ServicesURL:                 servicesHTML,
	}
}

// CareerWithoutJobs is a career page with no listings and no apply controls.
func CareerWithoutJobs() snapshot.Pages {
	p := Pages()
	p[CareerURL] = `<html><head><title>Careers</title></head><body><h1>Careers</h1><p>No openings right now.</p></body></html>`
	return p
}

// Handler serves the fixture site over HTTP, keyed by path and query, so a
// live browser can load it from an httptest server.
func Handler() http.Handler {
	byPath := make(map[string]string)
	for raw, body := range Pages() {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		byPath[u.RequestURI()] = body
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := byPath[r.URL.RequestURI()]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	})
}
