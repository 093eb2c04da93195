// ABOUTME: Instrumentation payload injected into every synthesized preview document before project code.
// ABOUTME: Hooks every failure channel inside the sandbox and reports over the one-way message channel.
package capture

import "strings"

// endpointToken is substituted with the capture ingest URL when the payload
// is built for a specific session.
const endpointToken = "__VITRINE_CAPTURE_ENDPOINT__"

// InstrumentationJS builds the script body for the given capture ingest
// endpoint. The script must be the first element of the synthesized
// document's head so no project code can execute unobserved.
//
// Every hook swallows its own secondary failures and tolerates the absence
// of any one API; capture-layer errors never throw back into project code.
func InstrumentationJS(endpoint string) string {
	return strings.ReplaceAll(instrumentationTemplate, endpointToken, endpoint)
}

const instrumentationTemplate = `(function () {
  'use strict';
  var ENDPOINT = '__VITRINE_CAPTURE_ENDPOINT__';

  function report(msg) {
    try {
      var body = JSON.stringify(msg);
      // One-way channel out of the sandbox: postMessage for an embedding
      // host page, beacon/fetch for the capture ingest endpoint.
      try {
        if (window.parent && window.parent !== window) {
          window.parent.postMessage(msg, '*');
        }
      } catch (_) {}
      if (ENDPOINT) {
        if (navigator.sendBeacon && navigator.sendBeacon(ENDPOINT, body)) return;
        if (window.fetch) {
          fetch(ENDPOINT, { method: 'POST', body: body, keepalive: true }).catch(function () {});
        }
      }
    } catch (_) {}
  }

  // Global script errors and resource load failures share the 'error'
  // event; capture phase distinguishes them by target.
  try {
    window.addEventListener('error', function (ev) {
      try {
        var t = ev.target;
        if (t && t !== window && t.tagName) {
          report({
            type: 'resource-error',
            tag: t.tagName.toLowerCase(),
            src: t.src || t.href || '',
            message: 'failed to load'
          });
          return;
        }
        var isModule = ev.message && /import|module|export/i.test(ev.message) &&
          /failed|cannot|unexpected/i.test(ev.message);
        report({
          type: isModule ? 'module-error' : 'runtime-error',
          message: ev.message || 'script error',
          filename: ev.filename || '',
          lineno: ev.lineno || 0,
          colno: ev.colno || 0,
          stack: ev.error && ev.error.stack ? String(ev.error.stack) : ''
        });
      } catch (_) {}
    }, true);
  } catch (_) {}

  try {
    window.addEventListener('unhandledrejection', function (ev) {
      try {
        var r = ev.reason;
        report({
          type: 'unhandled-rejection',
          message: r && r.message ? String(r.message) : String(r),
          stack: r && r.stack ? String(r.stack) : ''
        });
      } catch (_) {}
    });
  } catch (_) {}

  try {
    ['error', 'warn'].forEach(function (level) {
      var original = console[level];
      console[level] = function () {
        try {
          var parts = [];
          for (var i = 0; i < arguments.length; i++) {
            var a = arguments[i];
            parts.push(typeof a === 'object' ? JSON.stringify(a) : String(a));
          }
          report({ type: 'console-' + level, message: parts.join(' ') });
        } catch (_) {}
        if (original) original.apply(console, arguments);
      };
    });
  } catch (_) {}

  try {
    if (window.fetch) {
      var originalFetch = window.fetch;
      window.fetch = function (input, init) {
        var started = Date.now();
        var url = typeof input === 'string' ? input : (input && input.url) || '';
        var method = (init && init.method) || 'GET';
        if (ENDPOINT && url.indexOf(ENDPOINT) === 0) {
          return originalFetch.apply(window, arguments);
        }
        return originalFetch.apply(window, arguments).then(function (res) {
          if (!res.ok) {
            report({
              type: 'network-error', url: url, method: method,
              status: res.status, message: res.statusText || '',
              duration: Date.now() - started
            });
          }
          return res;
        }, function (err) {
          report({
            type: 'network-error', url: url, method: method, status: 0,
            message: err && err.message ? String(err.message) : 'network error',
            duration: Date.now() - started
          });
          throw err;
        });
      };
    }
  } catch (_) {}

  try {
    if (window.XMLHttpRequest) {
      var open = XMLHttpRequest.prototype.open;
      var send = XMLHttpRequest.prototype.send;
      XMLHttpRequest.prototype.open = function (method, url) {
        this.__vitrine = { method: method, url: String(url) };
        return open.apply(this, arguments);
      };
      XMLHttpRequest.prototype.send = function () {
        var xhr = this;
        var meta = xhr.__vitrine || {};
        var started = Date.now();
        try {
          xhr.addEventListener('load', function () {
            if (xhr.status >= 400) {
              report({
                type: 'network-error', url: meta.url || '', method: meta.method || 'GET',
                status: xhr.status, message: xhr.statusText || '',
                duration: Date.now() - started
              });
            }
          });
          xhr.addEventListener('error', function () {
            report({
              type: 'network-error', url: meta.url || '', method: meta.method || 'GET',
              status: 0, message: 'network error', duration: Date.now() - started
            });
          });
        } catch (_) {}
        return send.apply(this, arguments);
      };
    }
  } catch (_) {}

  // Dev-server build overlays (Vite/webpack) surface as injected DOM nodes.
  try {
    if (window.MutationObserver && document.documentElement) {
      var seen = '';
      new MutationObserver(function () {
        try {
          var overlay = document.querySelector('vite-error-overlay') ||
            document.getElementById('webpack-dev-server-client-overlay') ||
            document.querySelector('[data-nextjs-dialog-overlay]');
          if (!overlay) return;
          var text = overlay.shadowRoot ? overlay.shadowRoot.textContent : overlay.textContent;
          text = (text || '').trim();
          if (!text || text === seen) return;
          seen = text;
          report({ type: 'hmr-error', text: text.slice(0, 4000) });
        } catch (_) {}
      }).observe(document.documentElement, { childList: true, subtree: true });
    }
  } catch (_) {}

  // Hook for a generated error boundary to call directly.
  try {
    window.__vitrineReportReactError = function (message, stack, componentStack) {
      report({
        type: 'react-error',
        message: String(message || 'component render error'),
        stack: String(stack || ''),
        componentStack: String(componentStack || '')
      });
    };
  } catch (_) {}

  try {
    document.addEventListener('securitypolicyviolation', function (ev) {
      try {
        report({
          type: 'csp-violation',
          blockedURI: ev.blockedURI || '',
          violatedDirective: ev.violatedDirective || '',
          sourceFile: ev.sourceFile || '',
          lineNumber: ev.lineNumber || 0
        });
      } catch (_) {}
    });
  } catch (_) {}
})();
`
